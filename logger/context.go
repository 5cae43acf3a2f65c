package logger

import (
	"context"
	"sync/atomic"
	"time"
)

type contextKey string

const (
	httpCounterKey contextKey = "http_call_counter"
	httpElapsedKey contextKey = "http_elapsed_nanos"
)

// WithHTTPCounter returns a context that tracks the number and total duration of
// outbound HTTP calls made on its behalf.
func WithHTTPCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, httpCounterKey, &counter)
	ctx = context.WithValue(ctx, httpElapsedKey, &elapsed)
	return ctx
}

// IncrementHTTPCounter increments the call counter and returns the new count.
// It returns 0 when ctx carries no counter.
func IncrementHTTPCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(httpCounterKey).(*int64); ok && counter != nil {
		return atomic.AddInt64(counter, 1)
	}
	return 0
}

// GetHTTPCounter returns the current call count.
func GetHTTPCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(httpCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddHTTPElapsed adds d to the accumulated call duration.
func AddHTTPElapsed(ctx context.Context, d time.Duration) {
	if elapsed, ok := ctx.Value(httpElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, int64(d))
	}
}

// GetHTTPElapsed returns the accumulated call duration.
func GetHTTPElapsed(ctx context.Context) time.Duration {
	if elapsed, ok := ctx.Value(httpElapsedKey).(*int64); ok && elapsed != nil {
		return time.Duration(atomic.LoadInt64(elapsed))
	}
	return 0
}
