package restclient

import (
	"maps"
	"slices"

	"github.com/gaborage/go-restkit/config"
	"github.com/gaborage/go-restkit/logger"
	"github.com/gaborage/go-restkit/serialization"
)

// NewFromConfig builds the named client from its configuration section. Zero values
// in cfg keep the builder defaults.
func NewFromConfig(name string, cfg config.ClientConfig, log logger.Logger) (*Client, error) {
	b, err := BuilderFromConfig(name, cfg, log)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// BuilderFromConfig returns a builder preloaded from cfg so callers can add
// interceptors or middleware before Build.
func BuilderFromConfig(name string, cfg config.ClientConfig, log logger.Logger) (*Builder, error) {
	s, err := serialization.ForName(cfg.Serializer)
	if err != nil {
		return nil, &ValidationError{Message: err.Error(), Field: "serializer"}
	}

	b := NewBuilder(log).
		WithName(name).
		WithBaseURL(cfg.BaseURL).
		WithSerializer(s).
		WithThrowOnFailure(cfg.ThrowsOnFailure()).
		WithW3CTraceContext(cfg.W3CTraceEnabled()).
		WithTraceIDHeader(cfg.TraceIDHeader).
		WithPayloadLogging(cfg.LogPayloads, cfg.MaxPayloadLogBytes).
		WithRetries(cfg.Retry.MaxRetries, cfg.Retry.Delay).
		WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	if cfg.Timeout > 0 {
		b = b.WithTimeout(cfg.Timeout)
	}

	// Sorted so the resulting header order is stable across runs
	for _, key := range slices.Sorted(maps.Keys(cfg.Headers)) {
		b = b.WithDefaultHeader(key, cfg.Headers[key])
	}

	if cfg.CircuitBreaker.FailureThreshold > 0 {
		b = b.WithCircuitBreaker(NewCircuitBreaker(BreakerConfig{
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			OpenTimeout:      cfg.CircuitBreaker.OpenTimeout,
		}))
	}

	return b, nil
}
