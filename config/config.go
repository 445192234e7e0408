package config

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Provider kinds understood by the backend factory.
const (
	KindOpenAI    = "openai"
	KindOllama    = "ollama"
	KindAnthropic = "anthropic"
	KindGemini    = "gemini"
	KindBedrock   = "bedrock"
)

var kinds = []interface{}{KindOpenAI, KindOllama, KindAnthropic, KindGemini, KindBedrock}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type HealthCheckConfig struct {
	Interval          string `mapstructure:"interval"`
	ProbeTimeout      string `mapstructure:"probe_timeout"`
	FailureThreshold  int    `mapstructure:"failure_threshold"`
	RecoveryThreshold int    `mapstructure:"recovery_threshold"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	SuccessThreshold int    `mapstructure:"success_threshold"`
	Timeout          string `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	MaxSize    int    `mapstructure:"max_size"`
	DefaultTTL string `mapstructure:"default_ttl"`
	Shards     int    `mapstructure:"shards"`
}

// LastResortConfig names the backend tried after every chain candidate
// failed. It sits outside the fallback chains.
type LastResortConfig struct {
	Name    string `mapstructure:"name"`
	Kind    string `mapstructure:"kind"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type GatewayConfig struct {
	ActiveProvider  string           `mapstructure:"active_provider"`
	DefaultProvider string           `mapstructure:"default_provider"`
	RequestTimeout  string           `mapstructure:"request_timeout"`
	SimulationFile  string           `mapstructure:"simulation_file"`
	LastResort      LastResortConfig `mapstructure:"last_resort"`
}

type RetryConfig struct {
	MaxAttempts    int     `mapstructure:"max_attempts"`
	BackoffSeconds float64 `mapstructure:"backoff_seconds"`
}

type ProviderConfig struct {
	Name string `mapstructure:"name"`
	Kind string `mapstructure:"kind"`
	// Enabled defaults to true when omitted.
	Enabled        *bool          `mapstructure:"enabled"`
	Models         []string       `mapstructure:"models"`
	SelfHosted     bool           `mapstructure:"self_hosted"`
	BaseURL        string         `mapstructure:"base_url"`
	APIKeyEnv      string         `mapstructure:"api_key_env"`
	Region         string         `mapstructure:"region"`
	Timeout        string         `mapstructure:"timeout"`
	BreakerTimeout string         `mapstructure:"breaker_timeout"`
	Retry          RetryConfig    `mapstructure:"retry"`
	Metadata       map[string]any `mapstructure:"metadata"`
}

func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

type FallbackChainConfig struct {
	Primary string   `mapstructure:"primary"`
	Chain   []string `mapstructure:"chain"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
}

type Config struct {
	Server         ServerConfig                   `mapstructure:"server"`
	Logging        LoggingConfig                  `mapstructure:"logging"`
	HealthCheck    HealthCheckConfig              `mapstructure:"health_check"`
	CircuitBreaker CircuitBreakerConfig           `mapstructure:"circuit_breaker"`
	Cache          CacheConfig                    `mapstructure:"cache"`
	Gateway        GatewayConfig                  `mapstructure:"gateway"`
	Providers      []ProviderConfig               `mapstructure:"providers"`
	FallbackChains map[string]FallbackChainConfig `mapstructure:"fallback_chains"`
	Tracing        TracingConfig                  `mapstructure:"tracing"`
}

// Load searches ./config and . for config.yaml. A missing file is not an
// error; defaults and environment variables apply.
func Load() (*Config, error) {
	return load("")
}

// LoadFile reads the given config file, which must exist.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":9090")
	v.SetDefault("logging.level", LogLevelInfo)

	v.SetDefault("health_check.interval", "60s")
	v.SetDefault("health_check.probe_timeout", "10s")
	v.SetDefault("health_check.failure_threshold", 3)
	v.SetDefault("health_check.recovery_threshold", 2)

	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.success_threshold", 2)
	v.SetDefault("circuit_breaker.timeout", "60s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.default_ttl", "300s")
	v.SetDefault("cache.shards", 16)

	v.SetDefault("gateway.active_provider", "")
	v.SetDefault("gateway.default_provider", "openai")
	v.SetDefault("gateway.request_timeout", "120s")
	v.SetDefault("gateway.simulation_file", "")
	v.SetDefault("gateway.last_resort.name", "ollama")
	v.SetDefault("gateway.last_resort.kind", KindOllama)
	v.SetDefault("gateway.last_resort.model", "llama3")
	v.SetDefault("gateway.last_resort.base_url", "http://localhost:11434")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "llm-gateway")
}

// Duration parses a validated duration string, returning fallback for an
// empty one.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval, validation.Required, validation.By(validateDuration)),
					validation.Field(&hc.ProbeTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&hc.FailureThreshold, validation.Required, validation.Min(1)),
					validation.Field(&hc.RecoveryThreshold, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.CircuitBreaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				cb, ok := value.(CircuitBreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CircuitBreakerConfig")
				}
				return validation.ValidateStruct(&cb,
					validation.Field(&cb.FailureThreshold, validation.Required, validation.Min(1)),
					validation.Field(&cb.SuccessThreshold, validation.Required, validation.Min(1)),
					validation.Field(&cb.Timeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Cache,
			validation.By(func(value interface{}) error {
				cc, ok := value.(CacheConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CacheConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.MaxSize, validation.Min(1)),
					validation.Field(&cc.Shards, validation.Min(1)),
					validation.Field(&cc.DefaultTTL, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Gateway,
			validation.By(func(value interface{}) error {
				gc, ok := value.(GatewayConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a GatewayConfig")
				}
				return validation.ValidateStruct(&gc,
					validation.Field(&gc.RequestTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&gc.LastResort, validation.By(validateLastResort)),
				)
			}),
		),
		validation.Field(&c.Providers,
			validation.Each(validation.By(validateProviderConfig)),
			validation.By(validateUniqueNames),
		),
		validation.Field(&c.Tracing,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TracingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TracingConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.SampleRate, validation.Min(0.0), validation.Max(1.0)),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

// validateDuration accepts an empty string; pair it with Required when the
// field is mandatory.
func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if durationStr == "" {
		return nil
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "server URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateProviderConfig(value interface{}) error {
	pc, ok := value.(ProviderConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ProviderConfig")
	}

	return validation.ValidateStruct(&pc,
		validation.Field(&pc.Name, validation.Required),
		validation.Field(&pc.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&pc.BaseURL, validation.When(pc.BaseURL != "", validation.By(validateServerURL))),
		validation.Field(&pc.Region, validation.When(pc.Kind == KindBedrock, validation.Required)),
		validation.Field(&pc.Timeout, validation.By(validateDuration)),
		validation.Field(&pc.BreakerTimeout, validation.By(validateDuration)),
		validation.Field(&pc.Retry, validation.By(func(value interface{}) error {
			rc, ok := value.(RetryConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a RetryConfig")
			}
			return validation.ValidateStruct(&rc,
				validation.Field(&rc.MaxAttempts, validation.Min(0)),
				validation.Field(&rc.BackoffSeconds, validation.Min(0.0)),
			)
		})),
	)
}

func validateLastResort(value interface{}) error {
	lr, ok := value.(LastResortConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a LastResortConfig")
	}
	if lr.Name == "" {
		return nil
	}
	return validation.ValidateStruct(&lr,
		validation.Field(&lr.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&lr.BaseURL, validation.When(lr.BaseURL != "", validation.By(validateServerURL))),
	)
}

func validateUniqueNames(value interface{}) error {
	providers, ok := value.([]ProviderConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of ProviderConfig")
	}

	seen := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		if _, dup := seen[p.Name]; dup {
			return validation.NewError("validation_duplicate_provider", "duplicate provider name "+p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
