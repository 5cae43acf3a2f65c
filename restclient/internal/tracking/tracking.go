// Package tracking records OpenTelemetry spans and metrics for outbound REST calls.
package tracking

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-restkit/observability"
)

const (
	instrumentationName = "go-restkit/restclient"

	// Metric names following OpenTelemetry HTTP client semantic conventions
	metricRequestDuration = "http.client.request.duration" // Histogram in seconds
	metricRequestAttempts = "http.client.request.attempts" // Counter of wire attempts

	attrClientName = "restkit.client.name"
)

var (
	meter         metric.Meter
	meterOnce     sync.Once
	meterInitMu   sync.Mutex
	metricsInited bool

	requestDuration metric.Float64Histogram
	requestAttempts metric.Int64Counter
)

func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize restclient metric %s: %v\n", metricName, err)
	}
}

func initMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if meter != nil {
		return
	}

	meter = otel.Meter(instrumentationName)

	var err error
	requestDuration, err = observability.CreateHistogram(meter,
		metricRequestDuration,
		"Duration of outbound REST requests",
		metric.WithUnit("s"),
	)
	logMetricError(metricRequestDuration, err)

	requestAttempts, err = observability.CreateCounter(meter,
		metricRequestAttempts,
		"Number of wire attempts made for outbound REST requests",
		metric.WithUnit("{attempt}"),
	)
	logMetricError(metricRequestAttempts, err)

	metricsInited = true
}

func ensureMeterInitialized() {
	meterOnce.Do(initMeter)
}

// Exchange describes one completed call for span and metric recording.
type Exchange struct {
	Client     string
	Method     string
	URL        string
	StatusCode int
	Attempts   int
	Duration   time.Duration
	// ErrorType is the client error category, empty on success.
	ErrorType string
	Err       error
}

// StartSpan starts a client span for an outbound call. The returned context carries the
// span so W3C headers reference it.
func StartSpan(ctx context.Context, client, method, rawURL string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)

	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(method),
		attribute.String(attrClientName, client),
	}
	attrs = append(attrs, urlAttributes(rawURL)...)

	return tracer.Start(ctx, method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records the outcome on span and ends it. URL attributes are taken from
// ex.URL, which holds the resolved address once the request was built.
func EndSpan(span trace.Span, ex *Exchange) {
	span.SetAttributes(urlAttributes(ex.URL)...)
	if ex.StatusCode > 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(ex.StatusCode))
	}
	if ex.Attempts > 1 {
		span.SetAttributes(semconv.HTTPRequestResendCount(ex.Attempts - 1))
	}
	if ex.ErrorType != "" {
		span.SetAttributes(semconv.ErrorTypeKey.String(ex.ErrorType))
		if ex.Err != nil {
			span.RecordError(ex.Err)
			span.SetStatus(codes.Error, ex.Err.Error())
		} else {
			span.SetStatus(codes.Error, ex.ErrorType)
		}
	}
	span.End()
}

// RecordExchange records duration and attempt metrics for a completed call.
func RecordExchange(ctx context.Context, ex *Exchange) {
	ensureMeterInitialized()

	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(ex.Method),
		attribute.String(attrClientName, ex.Client),
	}
	if ex.StatusCode > 0 {
		attrs = append(attrs, semconv.HTTPResponseStatusCode(ex.StatusCode))
	}
	if ex.ErrorType != "" {
		attrs = append(attrs, semconv.ErrorTypeKey.String(ex.ErrorType))
	}
	if u, err := url.Parse(ex.URL); err == nil && u.Host != "" {
		attrs = append(attrs, semconv.ServerAddress(u.Hostname()))
	}

	if requestDuration != nil {
		requestDuration.Record(ctx, ex.Duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if requestAttempts != nil && ex.Attempts > 0 {
		requestAttempts.Add(ctx, int64(ex.Attempts), metric.WithAttributes(attrs...))
	}
}

// StatusErrorType is the error.type value for a failed HTTP status.
func StatusErrorType(status int) string {
	return strconv.Itoa(status)
}

// urlAttributes returns url.full and server.address for an absolute URL, nothing otherwise.
func urlAttributes(rawURL string) []attribute.KeyValue {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []attribute.KeyValue{
		semconv.ServerAddress(u.Hostname()),
		semconv.URLFull(redact(u)),
	}
}

// redact strips credentials from a URL before it is attached to telemetry.
func redact(u *url.URL) string {
	if u.User == nil {
		return u.String()
	}
	clone := *u
	clone.User = nil
	return clone.String()
}

// IsInitialized returns true if restclient metrics have been initialized.
func IsInitialized() bool {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()
	return metricsInited
}

// ResetForTesting resets the metric state so a test meter provider is picked up.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	meter = nil
	requestDuration = nil
	requestAttempts = nil
	metricsInited = false
	meterOnce = sync.Once{}
}
