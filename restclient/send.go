package restclient

import (
	"context"
	crand "crypto/rand"
	"errors"
	"io"
	"math/big"
	nethttp "net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRetryDelay is the default base delay between retries
	DefaultRetryDelay = 1 * time.Second

	maxBackoff = 30 * time.Second
)

// SendFunc performs one HTTP exchange. The request already carries ctx.
type SendFunc func(ctx context.Context, client *nethttp.Client, req *nethttp.Request) (*nethttp.Response, error)

// SendMiddleware decorates a SendFunc.
type SendMiddleware func(next SendFunc) SendFunc

// DefaultSend performs a single client.Do.
func DefaultSend(_ context.Context, client *nethttp.Client, req *nethttp.Request) (*nethttp.Response, error) {
	return client.Do(req)
}

// Chain wraps base with mws. The first middleware is the outermost.
func Chain(base SendFunc, mws ...SendMiddleware) SendFunc {
	if base == nil {
		base = DefaultSend
	}
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			base = mws[i](base)
		}
	}
	return base
}

type attemptsKey struct{}

func withAttemptCounter(ctx context.Context) (context.Context, *int) {
	n := new(int)
	return context.WithValue(ctx, attemptsKey{}, n), n
}

// countAttempts records each exchange that reaches the innermost send.
func countAttempts(next SendFunc) SendFunc {
	return func(ctx context.Context, client *nethttp.Client, req *nethttp.Request) (*nethttp.Response, error) {
		if n, ok := ctx.Value(attemptsKey{}).(*int); ok {
			*n++
		}
		return next(ctx, client, req)
	}
}

// WithRetry retries transport errors and 5xx responses up to maxRetries times.
// Delays grow exponentially from delay with full jitter. The caller's cancellation
// stops retrying immediately.
func WithRetry(maxRetries int, delay time.Duration) SendMiddleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, client *nethttp.Client, req *nethttp.Request) (*nethttp.Response, error) {
			for attempt := 0; ; attempt++ {
				resp, err := next(ctx, client, req)

				if attempt >= maxRetries || ctx.Err() != nil || !shouldRetry(resp, err) {
					return resp, err
				}
				if resp != nil {
					drainAndClose(resp.Body)
				}

				if waitErr := sleepContext(ctx, backoffDelay(delay, attempt)); waitErr != nil {
					return nil, waitErr
				}

				rewound, rewindErr := rewindRequest(ctx, req)
				if rewindErr != nil {
					if err == nil {
						err = rewindErr
					}
					return nil, err
				}
				req = rewound
			}
		}
	}
}

func shouldRetry(resp *nethttp.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, ErrCircuitOpen)
	}
	return resp != nil && isRetryableStatus(resp.StatusCode)
}

func isRetryableStatus(code int) bool {
	return code >= 500 && code < 600
}

func rewindRequest(ctx context.Context, req *nethttp.Request) (*nethttp.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.Body == nethttp.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay returns the exponential backoff delay for the given attempt,
// using base as the starting delay and capping to a reasonable maximum.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	// Cap attempt to avoid overflow when computing multiplier
	if attempt > 20 {
		attempt = 20
	}
	d := base * time.Duration(1<<attempt)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	// Full jitter: random duration in [0, d)
	n, err := crand.Int(crand.Reader, big.NewInt(int64(d)))
	if err != nil {
		return d
	}
	return time.Duration(n.Int64())
}

// WithRateLimit waits for a token from limiter before every attempt.
func WithRateLimit(limiter *rate.Limiter) SendMiddleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, client *nethttp.Client, req *nethttp.Request) (*nethttp.Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return next(ctx, client, req)
		}
	}
}

// WithCircuitBreaker short-circuits calls while cb is open. Transport errors and 5xx
// responses count as failures.
func WithCircuitBreaker(cb *CircuitBreaker) SendMiddleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, client *nethttp.Client, req *nethttp.Request) (*nethttp.Response, error) {
			if !cb.Allow() {
				return nil, ErrCircuitOpen
			}
			resp, err := next(ctx, client, req)
			switch {
			case err != nil && ctx.Err() != nil:
				// Caller gave up; the upstream was not judged.
				cb.Release()
			case err != nil || (resp != nil && isRetryableStatus(resp.StatusCode)):
				cb.RecordFailure()
			default:
				cb.RecordSuccess()
			}
			return resp, err
		}
	}
}
