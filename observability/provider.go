package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the tracer and meter providers that receive REST client spans and metrics.
type Provider interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider

	// Shutdown exports whatever is still buffered and stops the exporters.
	Shutdown(ctx context.Context) error

	// ForceFlush exports buffered spans and metrics without stopping.
	ForceFlush(ctx context.Context) error
}

// sdkProvider backs Provider with the OpenTelemetry SDK. Either side may be nil when
// disabled in config.
type sdkProvider struct {
	mu     sync.Mutex
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
}

// NewProvider builds the providers described by cfg and installs them as the otel
// globals together with the W3C trace-context propagator. restclient resolves its tracer
// and meter from those globals, so no further wiring is needed.
//
// Defaults are applied to a copy of cfg. A disabled config installs nothing and returns a
// provider whose operations are no-ops.
func NewProvider(cfg *Config) (Provider, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	resolved := *cfg
	resolved.Trace.Headers = cloneHeaderMap(cfg.Trace.Headers)
	resolved.Metrics.Headers = cloneHeaderMap(cfg.Metrics.Headers)
	resolved.ApplyDefaults()

	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}
	if !resolved.Enabled {
		return disabledProvider{}, nil
	}

	res, err := serviceResource(&resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &sdkProvider{}
	if isSet(resolved.Trace.Enabled) {
		if p.tracer, err = newTracerProvider(&resolved, res); err != nil {
			return nil, fmt.Errorf("failed to initialize trace provider: %w", err)
		}
	}
	if isSet(resolved.Metrics.Enabled) {
		if p.meter, err = newMeterProvider(&resolved, res); err != nil {
			_ = p.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
		}
	}

	p.install()
	return p, nil
}

func isSet(b *bool) bool {
	return b != nil && *b
}

// install publishes the providers as otel globals. A disabled side keeps whatever
// global was there before.
func (p *sdkProvider) install() {
	if p.tracer != nil {
		otel.SetTracerProvider(p.tracer)
	}
	if p.meter != nil {
		otel.SetMeterProvider(p.meter)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// serviceResource describes the calling service on every span and metric.
func serviceResource(cfg *Config) (*resource.Resource, error) {
	custom, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.Service.Name),
			semconv.ServiceVersion(cfg.Service.Version),
			semconv.DeploymentEnvironmentName(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), custom)
}

func newTracerProvider(cfg *Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := traceExporter(&cfg.Trace, cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	batcher := sdktrace.NewBatchSpanProcessor(exporter,
		sdktrace.WithBatchTimeout(cfg.Trace.Batch.Timeout),
		sdktrace.WithExportTimeout(cfg.Trace.Export.Timeout),
		sdktrace.WithMaxQueueSize(defaultQueueSize),
		sdktrace.WithMaxExportBatchSize(cfg.Trace.Batch.Size),
	)

	// An upstream sampling decision carried in traceparent wins over the local ratio
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(batcher),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(*cfg.Trace.Sample.Rate))),
	), nil
}

func (p *sdkProvider) TracerProvider() trace.TracerProvider {
	if p.tracer == nil {
		return tracenoop.NewTracerProvider()
	}
	return p.tracer
}

func (p *sdkProvider) MeterProvider() metric.MeterProvider {
	if p.meter == nil {
		return metricnoop.NewMeterProvider()
	}
	return p.meter
}

func (p *sdkProvider) Shutdown(ctx context.Context) error {
	return p.each(ctx, "shutdown", (*sdktrace.TracerProvider).Shutdown, (*sdkmetric.MeterProvider).Shutdown)
}

func (p *sdkProvider) ForceFlush(ctx context.Context) error {
	return p.each(ctx, "flush", (*sdktrace.TracerProvider).ForceFlush, (*sdkmetric.MeterProvider).ForceFlush)
}

// each runs op on both providers and joins their errors.
func (p *sdkProvider) each(
	ctx context.Context,
	op string,
	onTracer func(*sdktrace.TracerProvider, context.Context) error,
	onMeter func(*sdkmetric.MeterProvider, context.Context) error,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.tracer != nil {
		if err := onTracer(p.tracer, ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider %s: %w", op, err))
		}
	}
	if p.meter != nil {
		if err := onMeter(p.meter, ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider %s: %w", op, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s errors: %w", op, errors.Join(errs...))
	}
	return nil
}
