package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

// newMeterProvider builds the meter provider that periodically exports REST client
// request durations and attempt counts.
func newMeterProvider(cfg *Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := metricExporter(&cfg.Metrics, cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(cfg.Metrics.Interval),
		sdkmetric.WithTimeout(cfg.Metrics.Export.Timeout),
	)

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	), nil
}

// temporalitySelector maps the configured temporality onto an SDK selector.
func temporalitySelector(temporality string) sdkmetric.TemporalitySelector {
	if temporality != TemporalityDelta {
		return sdkmetric.DefaultTemporalitySelector
	}
	return func(kind sdkmetric.InstrumentKind) metricdata.Temporality {
		switch kind {
		case sdkmetric.InstrumentKindUpDownCounter, sdkmetric.InstrumentKindObservableUpDownCounter:
			// Up-down counters are only meaningful as cumulative sums
			return metricdata.CumulativeTemporality
		default:
			return metricdata.DeltaTemporality
		}
	}
}

// aggregationSelector switches histograms to base2 exponential buckets when requested.
func aggregationSelector(aggregation string) sdkmetric.AggregationSelector {
	if aggregation != HistogramAggregationExponential {
		return sdkmetric.DefaultAggregationSelector
	}
	return func(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
		if kind == sdkmetric.InstrumentKindHistogram {
			return sdkmetric.AggregationBase2ExponentialHistogram{MaxSize: 160, MaxScale: 20}
		}
		return sdkmetric.DefaultAggregationSelector(kind)
	}
}

// CreateCounter creates a new counter metric instrument.
//
// Example:
//
//	counter, err := CreateCounter(meter, "http.client.request.attempts", "Attempts per REST call")
//	if err != nil {
//	    return err
//	}
//	counter.Add(ctx, 2, metric.WithAttributes(attribute.String("http.request.method", "GET")))
func CreateCounter(meter metric.Meter, name, description string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return meter.Int64Counter(
		name,
		append([]metric.Int64CounterOption{
			metric.WithDescription(description),
		}, opts...)...,
	)
}

// CreateHistogram creates a new histogram metric instrument.
func CreateHistogram(meter metric.Meter, name, description string, opts ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return meter.Float64Histogram(
		name,
		append([]metric.Float64HistogramOption{
			metric.WithDescription(description),
		}, opts...)...,
	)
}
