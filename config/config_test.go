package config_test

import (
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/llm-gateway/config"
)

const fullConfig = `
server:
  address: ":9090"
  environment: "prod"

logging:
  level: "debug"

health_check:
  interval: "30s"
  probe_timeout: "5s"
  failure_threshold: 4
  recovery_threshold: 1

circuit_breaker:
  failure_threshold: 2
  success_threshold: 1
  timeout: "45s"

cache:
  enabled: true
  max_size: 500
  default_ttl: "10m"
  shards: 8

gateway:
  active_provider: "gigachat"
  simulation_file: "simulation.yaml"

providers:
  - name: "gigachat"
    kind: "openai"
    base_url: "https://gigachat.example.com"
    api_key_env: "GIGACHAT_TOKEN"
    models: ["GigaChat-Pro", "GigaChat"]
    timeout: "30s"
    retry:
      max_attempts: 3
      backoff_seconds: 0.5
  - name: "yandex-gpt"
    kind: "openai"
    enabled: false
  - name: "claude"
    kind: "anthropic"
    breaker_timeout: "2m"
    metadata:
      tier: "paid"

fallback_chains:
  code_generation:
    primary: "claude"
    chain: ["gigachat", "yandex-gpt"]
`

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	AfterEach(func() {
		os.Unsetenv("GATEWAY_ACTIVE_PROVIDER")
		os.Unsetenv("LOGGING_LEVEL")
	})

	write := func(content string) string {
		path := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	Describe("LoadFile", func() {
		Context("with a full config file", func() {
			var cfg *config.Config

			BeforeEach(func() {
				var err error
				cfg, err = config.LoadFile(write(fullConfig))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should parse thresholds", func() {
				Expect(cfg.HealthCheck.FailureThreshold).To(Equal(4))
				Expect(cfg.CircuitBreaker.FailureThreshold).To(Equal(2))
				Expect(config.Duration(cfg.CircuitBreaker.Timeout, 0)).To(Equal(45 * time.Second))
				Expect(config.Duration(cfg.Cache.DefaultTTL, 0)).To(Equal(10 * time.Minute))
			})

			It("should parse providers", func() {
				Expect(cfg.Providers).To(HaveLen(3))

				giga := cfg.Providers[0]
				Expect(giga.Models).To(Equal([]string{"GigaChat-Pro", "GigaChat"}))
				Expect(giga.Retry.MaxAttempts).To(Equal(3))
				Expect(giga.Retry.BackoffSeconds).To(Equal(0.5))
				Expect(giga.IsEnabled()).To(BeTrue())

				Expect(cfg.Providers[1].IsEnabled()).To(BeFalse())
				Expect(cfg.Providers[2].Metadata).To(HaveKeyWithValue("tier", "paid"))
			})

			It("should parse fallback chains", func() {
				Expect(cfg.FallbackChains).To(HaveKey("code_generation"))
				chain := cfg.FallbackChains["code_generation"]
				Expect(chain.Primary).To(Equal("claude"))
				Expect(chain.Chain).To(Equal([]string{"gigachat", "yandex-gpt"}))
			})

			It("should keep defaults for omitted keys", func() {
				Expect(cfg.Gateway.DefaultProvider).To(Equal("openai"))
				Expect(cfg.Gateway.LastResort.Kind).To(Equal(config.KindOllama))
				Expect(cfg.Gateway.LastResort.Model).To(Equal("llama3"))
				Expect(cfg.Tracing.SampleRate).To(Equal(1.0))
			})
		})

		It("should let environment variables override the file", func() {
			os.Setenv("GATEWAY_ACTIVE_PROVIDER", "claude")
			os.Setenv("LOGGING_LEVEL", "warn")

			cfg, err := config.LoadFile(write(fullConfig))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Gateway.ActiveProvider).To(Equal("claude"))
			Expect(cfg.Logging.Level).To(Equal("warn"))
		})

		It("should fail for a missing file", func() {
			_, err := config.LoadFile(filepath.Join(tempDir, "absent.yaml"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Load", func() {
		It("should use defaults when no config file exists", func() {
			wd, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tempDir)).To(Succeed())
			DeferCleanup(os.Chdir, wd)

			cfg, err := config.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Providers).To(BeEmpty())
			Expect(cfg.Server.Address).To(Equal(":9090"))
			Expect(cfg.Cache.MaxSize).To(Equal(1000))
			Expect(cfg.HealthCheck.RecoveryThreshold).To(Equal(2))
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			var err error
			cfg, err = config.LoadFile(write(fullConfig))
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("should reject invalid values",
			func(mutate func(*config.Config), field string) {
				mutate(cfg)
				err := cfg.Validate()
				Expect(err).To(HaveOccurred())

				var errs validation.Errors
				Expect(err).To(BeAssignableToTypeOf(errs))
				Expect(err.(validation.Errors)).To(HaveKey(field))
			},
			Entry("environment", func(c *config.Config) { c.Server.Environment = "qa" }, "Server"),
			Entry("address", func(c *config.Config) { c.Server.Address = "nope" }, "Server"),
			Entry("log level", func(c *config.Config) { c.Logging.Level = "trace" }, "Logging"),
			Entry("health interval", func(c *config.Config) { c.HealthCheck.Interval = "soon" }, "HealthCheck"),
			Entry("breaker timeout", func(c *config.Config) { c.CircuitBreaker.Timeout = "-1s" }, "CircuitBreaker"),
			Entry("provider kind", func(c *config.Config) { c.Providers[0].Kind = "grpc" }, "Providers"),
			Entry("provider url", func(c *config.Config) { c.Providers[0].BaseURL = "ftp://x" }, "Providers"),
			Entry("bedrock region", func(c *config.Config) {
				c.Providers = append(c.Providers, config.ProviderConfig{Name: "br", Kind: config.KindBedrock})
			}, "Providers"),
			Entry("duplicate names", func(c *config.Config) { c.Providers[1].Name = "gigachat" }, "Providers"),
			Entry("sample rate", func(c *config.Config) { c.Tracing.SampleRate = 2 }, "Tracing"),
		)

		It("should accept a config without providers", func() {
			cfg.Providers = nil
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("Duration", func() {
		It("should fall back for empty or invalid input", func() {
			Expect(config.Duration("", time.Second)).To(Equal(time.Second))
			Expect(config.Duration("bad", time.Second)).To(Equal(time.Second))
			Expect(config.Duration("3m", time.Second)).To(Equal(3 * time.Minute))
		})
	})
})
