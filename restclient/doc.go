// Package restclient provides a generic REST client built around a per-call dispatch
// pipeline: validate the request, acquire a named transport, build the HTTP message,
// send it through a pluggable SendFunc, classify the response and deserialize the body.
//
// Typed access
//   - Send[T] returns a *Response[T] and a typed error (see errors.go).
//   - Call[T, E] converts the same pipeline into result.Result[T, result.HTTPError[E]];
//     only caller cancellation is returned as a plain error.
//
// Headers
//   - Client default headers are merged with request headers; request values win.
//   - Content headers (see ContentHeaderNames) travel with the body only and are dropped
//     when the request has no body.
//   - A raw body ([]byte or string) without Content-Type is rejected with ErrMissingContentType.
//
// Timeouts
//   - The client timeout is applied per call with context.WithTimeout; pooled *http.Client
//     handles are never mutated. Expiry of the client timeout yields a *SendError whose
//     Timeout() is true. Expiry or cancellation of the caller's context is returned unwrapped.
//
// Send decorators
//   - WithRetry retries transport errors and 5xx responses with exponential backoff and
//     full jitter, capped at 30 seconds. 4xx responses and caller cancellation are not retried.
//   - WithRateLimit waits on a token bucket before each attempt.
//   - WithCircuitBreaker rejects calls with ErrCircuitOpen after consecutive failures.
package restclient
