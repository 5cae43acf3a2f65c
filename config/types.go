package config

import (
	"time"

	"github.com/gaborage/go-restkit/observability"
)

// Config represents the restkit configuration
type Config struct {
	Log           LogConfig               `koanf:"log" json:"log" yaml:"log" toml:"log" mapstructure:"log"`
	Observability observability.Config    `koanf:"observability" json:"observability" yaml:"observability" toml:"observability" mapstructure:"observability"`
	Clients       map[string]ClientConfig `koanf:"clients" json:"clients" yaml:"clients" toml:"clients" mapstructure:"clients" validate:"dive"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" toml:"level" mapstructure:"level" validate:"required,oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" toml:"pretty" mapstructure:"pretty"`
}

// ClientConfig describes one named REST client. Zero values keep the client defaults.
type ClientConfig struct {
	BaseURL        string            `koanf:"base_url" json:"base_url" yaml:"base_url" toml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout        time.Duration     `koanf:"timeout" json:"timeout" yaml:"timeout" toml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	Headers        map[string]string `koanf:"headers" json:"headers" yaml:"headers" toml:"headers" mapstructure:"headers"`
	ThrowOnFailure *bool             `koanf:"throw_on_failure" json:"throw_on_failure" yaml:"throw_on_failure" toml:"throw_on_failure" mapstructure:"throw_on_failure"`
	Serializer     string            `koanf:"serializer" json:"serializer" yaml:"serializer" toml:"serializer" mapstructure:"serializer" validate:"omitempty,oneof=json cbor"`

	Retry          RetryConfig          `koanf:"retry" json:"retry" yaml:"retry" toml:"retry" mapstructure:"retry"`
	RateLimit      RateLimitConfig      `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit" toml:"rate_limit" mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" json:"circuit_breaker" yaml:"circuit_breaker" toml:"circuit_breaker" mapstructure:"circuit_breaker"`

	LogPayloads        bool   `koanf:"log_payloads" json:"log_payloads" yaml:"log_payloads" toml:"log_payloads" mapstructure:"log_payloads"`
	MaxPayloadLogBytes int    `koanf:"max_payload_log_bytes" json:"max_payload_log_bytes" yaml:"max_payload_log_bytes" toml:"max_payload_log_bytes" mapstructure:"max_payload_log_bytes" validate:"gte=0"`
	TraceIDHeader      string `koanf:"trace_id_header" json:"trace_id_header" yaml:"trace_id_header" toml:"trace_id_header" mapstructure:"trace_id_header"`
	W3CTrace           *bool  `koanf:"w3c_trace" json:"w3c_trace" yaml:"w3c_trace" toml:"w3c_trace" mapstructure:"w3c_trace"`
}

// RetryConfig holds retry settings. MaxRetries of zero disables retries.
type RetryConfig struct {
	MaxRetries int           `koanf:"max_retries" json:"max_retries" yaml:"max_retries" toml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
	Delay      time.Duration `koanf:"delay" json:"delay" yaml:"delay" toml:"delay" mapstructure:"delay" validate:"gte=0"`
}

// RateLimitConfig holds attempt rate limiting. A zero rate disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" json:"burst" yaml:"burst" toml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// CircuitBreakerConfig holds breaker settings. A zero threshold disables the breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           `koanf:"failure_threshold" json:"failure_threshold" yaml:"failure_threshold" toml:"failure_threshold" mapstructure:"failure_threshold" validate:"gte=0"`
	OpenTimeout      time.Duration `koanf:"open_timeout" json:"open_timeout" yaml:"open_timeout" toml:"open_timeout" mapstructure:"open_timeout" validate:"gte=0"`
}

// ThrowsOnFailure reports whether non-2xx responses should fail the call. Defaults to true.
func (c *ClientConfig) ThrowsOnFailure() bool {
	return c.ThrowOnFailure == nil || *c.ThrowOnFailure
}

// W3CTraceEnabled reports whether traceparent propagation is on. Defaults to true.
func (c *ClientConfig) W3CTraceEnabled() bool {
	return c.W3CTrace == nil || *c.W3CTrace
}
