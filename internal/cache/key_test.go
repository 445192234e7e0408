package cache_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/llm-gateway/internal/cache"
)

func mustKey(p cache.KeyParts) string {
	GinkgoHelper()
	key, err := cache.Key(p)
	Expect(err).NotTo(HaveOccurred())
	return key
}

var _ = Describe("Key", func() {
	base := cache.KeyParts{
		Prompt:       "Напиши запрос к регистру",
		Role:         "code_generation",
		Temperature:  0.7,
		MaxTokens:    2048,
		SystemPrompt: "",
	}

	It("should be deterministic", func() {
		Expect(mustKey(base)).To(Equal(mustKey(base)))
		Expect(mustKey(base)).To(HaveLen(64))
	})

	It("should not depend on the order fields are set in", func() {
		other := cache.KeyParts{}
		other.SystemPrompt = base.SystemPrompt
		other.MaxTokens = base.MaxTokens
		other.Temperature = base.Temperature
		other.Role = base.Role
		other.Prompt = base.Prompt
		Expect(mustKey(other)).To(Equal(mustKey(base)))
	})

	DescribeTable("should change with every field",
		func(mutate func(*cache.KeyParts)) {
			p := base
			mutate(&p)
			Expect(mustKey(p)).NotTo(Equal(mustKey(base)))
		},
		Entry("prompt", func(p *cache.KeyParts) { p.Prompt += "!" }),
		Entry("role", func(p *cache.KeyParts) { p.Role = "analysis" }),
		Entry("temperature", func(p *cache.KeyParts) { p.Temperature = 0.2 }),
		Entry("max tokens", func(p *cache.KeyParts) { p.MaxTokens = 512 }),
		Entry("system prompt", func(p *cache.KeyParts) { p.SystemPrompt = "be terse" }),
		Entry("NaN temperature", func(p *cache.KeyParts) { p.Temperature = math.NaN() }),
		Entry("infinite temperature", func(p *cache.KeyParts) { p.Temperature = math.Inf(1) }),
	)

	DescribeTable("should keep prompts apart for non-finite temperatures",
		func(temperature float64) {
			a := base
			a.Temperature = temperature
			b := a
			b.Prompt = "Сколько будет 2+2?"

			Expect(mustKey(a)).NotTo(Equal(mustKey(b)))
			Expect(mustKey(a)).To(Equal(mustKey(a)))
		},
		Entry("NaN", math.NaN()),
		Entry("+Inf", math.Inf(1)),
		Entry("-Inf", math.Inf(-1)),
	)

	It("should tell the infinities apart", func() {
		pos, neg := base, base
		pos.Temperature = math.Inf(1)
		neg.Temperature = math.Inf(-1)
		Expect(mustKey(pos)).NotTo(Equal(mustKey(neg)))
	})

	It("should not collide when text moves between fields", func() {
		a := cache.KeyParts{Prompt: "a:b", Role: "c"}
		b := cache.KeyParts{Prompt: "a", Role: "b:c"}
		Expect(mustKey(a)).NotTo(Equal(mustKey(b)))
	})
})
