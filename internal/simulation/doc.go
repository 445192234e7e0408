// Package simulation loads scripted gateway answers from a YAML file so that
// demos and integration runs work without any provider.
//
// Example file:
//
//	mode: simulation
//	scenarios:
//	  - name: register-query
//	    match:
//	      role: code_generation
//	      contains: ["регистр", "query"]
//	    response:
//	      text: "ВЫБРАТЬ * ИЗ РегистрНакопления.Остатки"
//	fallback:
//	  default_chain: [gigachat, yandex-gpt]
package simulation
