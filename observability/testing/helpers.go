// Package testing provides in-memory OpenTelemetry providers and assertions for
// tests that exercise REST client instrumentation.
//
// Usage:
//
//	tp, mp := Install(t)
//
//	// run code that issues REST calls
//
//	span := NewSpanCollector(t, tp.Exporter).WithName("GET").First()
//	AssertSpanAttribute(t, &span, "http.response.status_code", 200)
//
//	count, err := GetMetricHistogramCount(mp.Collect(t), "http.client.request.duration")
package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	attrValueMismatchErrMsg = "attribute %s value mismatch"
	metricNotFoundErrMsg    = "metric %s not found"
	noDataPointsErrMsg      = "no data points for metric %s"
)

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports spans synchronously
// into memory.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	return &TestTraceProvider{
		TracerProvider: provider,
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider whose metrics are collected on demand.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
	)

	return &TestMeterProvider{
		MeterProvider: provider,
		Reader:        reader,
	}
}

// Collect reads all metrics from the provider.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	err := tmp.Reader.Collect(context.Background(), &rm)
	require.NoError(t, err, "failed to collect metrics")
	return rm
}

// Install registers fresh test providers as the global OpenTelemetry providers and
// restores the previous ones when the test ends. Packages that cache instruments
// must be reset by the caller so they bind to the new meter provider.
func Install(t *testing.T) (*TestTraceProvider, *TestMeterProvider) {
	t.Helper()

	prevTP := otel.GetTracerProvider()
	prevMP := otel.GetMeterProvider()

	tp := NewTestTraceProvider()
	mp := NewTestMeterProvider()
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	return tp, mp
}

// SpanCollector provides a fluent API for filtering and asserting on captured spans.
type SpanCollector struct {
	t     *testing.T
	spans tracetest.SpanStubs
}

// NewSpanCollector creates a span collector from an in-memory exporter.
func NewSpanCollector(t *testing.T, exporter *tracetest.InMemoryExporter) *SpanCollector {
	t.Helper()
	return &SpanCollector{
		t:     t,
		spans: exporter.GetSpans(),
	}
}

// Len returns the number of collected spans.
func (sc *SpanCollector) Len() int {
	return len(sc.spans)
}

// WithName filters spans by name and returns a new collector.
func (sc *SpanCollector) WithName(name string) *SpanCollector {
	return sc.filter(func(s *tracetest.SpanStub) bool { return s.Name == name })
}

// WithAttribute filters spans by attribute key-value pair and returns a new collector.
func (sc *SpanCollector) WithAttribute(key string, value any) *SpanCollector {
	return sc.filter(func(s *tracetest.SpanStub) bool {
		for _, attr := range s.Attributes {
			if attr.Key == attribute.Key(key) && matchesValue(attr.Value, value) {
				return true
			}
		}
		return false
	})
}

func (sc *SpanCollector) filter(keep func(*tracetest.SpanStub) bool) *SpanCollector {
	filtered := make(tracetest.SpanStubs, 0, len(sc.spans))
	for i := range sc.spans {
		if keep(&sc.spans[i]) {
			filtered = append(filtered, sc.spans[i])
		}
	}
	return &SpanCollector{t: sc.t, spans: filtered}
}

// First returns the first span in the collection.
// Fails the test if the collection is empty.
func (sc *SpanCollector) First() tracetest.SpanStub {
	sc.t.Helper()
	require.NotEmpty(sc.t, sc.spans, "no spans in collection")
	return sc.spans[0]
}

// AssertCount asserts the number of collected spans.
func (sc *SpanCollector) AssertCount(expected int) *SpanCollector {
	sc.t.Helper()
	assert.Len(sc.t, sc.spans, expected, "unexpected number of spans")
	return sc
}

// matchesValue checks if an attribute value matches the expected value.
func matchesValue(attrValue attribute.Value, expected any) bool {
	switch v := expected.(type) {
	case string:
		return attrValue.AsString() == v
	case int:
		return attrValue.AsInt64() == int64(v)
	case int64:
		return attrValue.AsInt64() == v
	case float64:
		return attrValue.AsFloat64() == v
	case bool:
		return attrValue.AsBool() == v
	default:
		return false
	}
}

// AssertSpanAttribute asserts that a span has a specific attribute with the expected value.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			assert.True(t, matchesValue(attr.Value, expected), attrValueMismatchErrMsg+": got %v", key, attr.Value.Emit())
			return
		}
	}
	t.Errorf("attribute %s not found in span", key)
}

// AssertNoSpanAttribute asserts that a span does not carry key.
func AssertNoSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			t.Errorf("unexpected attribute %s=%s in span", key, attr.Value.Emit())
			return
		}
	}
}

// AssertSpanError asserts that a span has an error status with the expected description.
// An empty description only checks the status code.
func AssertSpanError(t *testing.T, span *tracetest.SpanStub, expectedDesc string) {
	t.Helper()
	assert.Equal(t, codes.Error, span.Status.Code, "expected error status")
	if expectedDesc != "" {
		assert.Equal(t, expectedDesc, span.Status.Description, "span error description mismatch")
	}
}

// FindMetric finds a metric by name in the ResourceMetrics.
// Returns nil if not found.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == metricName {
				return &m
			}
		}
	}
	return nil
}

// GetMetricSumValue returns the summed value across all data points of a Sum[int64] metric.
func GetMetricSumValue(rm metricdata.ResourceMetrics, metricName string) (int64, error) {
	metric := FindMetric(rm, metricName)
	if metric == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, metricName)
	}

	data, ok := metric.Data.(metricdata.Sum[int64])
	if !ok {
		return 0, fmt.Errorf("metric %s is not a Sum[int64]", metricName)
	}
	if len(data.DataPoints) == 0 {
		return 0, fmt.Errorf(noDataPointsErrMsg, metricName)
	}

	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total, nil
}

// GetMetricHistogramCount returns the number of recordings across all data points
// of a Histogram[float64] metric.
func GetMetricHistogramCount(rm metricdata.ResourceMetrics, metricName string) (uint64, error) {
	metric := FindMetric(rm, metricName)
	if metric == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, metricName)
	}

	data, ok := metric.Data.(metricdata.Histogram[float64])
	if !ok {
		return 0, fmt.Errorf("metric %s is not a Histogram[float64]", metricName)
	}
	if len(data.DataPoints) == 0 {
		return 0, fmt.Errorf(noDataPointsErrMsg, metricName)
	}

	var total uint64
	for _, dp := range data.DataPoints {
		total += dp.Count
	}
	return total, nil
}
