// Package bedrock implements backend.Backend for models served by AWS Bedrock.
package bedrock
