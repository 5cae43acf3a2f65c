package result

import (
	"fmt"

	"github.com/gaborage/go-restkit/headers"
)

// HTTPError is the failure channel of an HTTP operation. It is either an ExceptionError,
// when the exchange itself failed (network, timeout, decoding), or an ErrorResponseError,
// when the server answered with a non-success status.
type HTTPError[E any] interface {
	error
	// IsExceptionError reports whether the exchange failed before a response was classified.
	IsExceptionError() bool
	// IsErrorResponse reports whether the server answered with a non-success status.
	IsErrorResponse() bool

	sealedHTTPError()
}

// ExceptionError wraps an infrastructure failure.
type ExceptionError[E any] struct {
	Err error
}

// ErrorResponseError carries a non-success response whose body was decoded into E.
type ErrorResponseError[E any] struct {
	Body       E
	StatusCode int
	Headers    headers.Collection
}

var (
	_ HTTPError[string] = ExceptionError[string]{}
	_ HTTPError[string] = ErrorResponseError[string]{}
)

// FromException builds an HTTPError for a failed exchange.
func FromException[E any](err error) HTTPError[E] {
	return ExceptionError[E]{Err: err}
}

// FromErrorResponse builds an HTTPError for a received non-success response.
func FromErrorResponse[E any](body E, statusCode int, h headers.Collection) HTTPError[E] {
	return ErrorResponseError[E]{Body: body, StatusCode: statusCode, Headers: h}
}

func (ExceptionError[E]) sealedHTTPError()     {}
func (ErrorResponseError[E]) sealedHTTPError() {}

func (ExceptionError[E]) IsExceptionError() bool     { return true }
func (ExceptionError[E]) IsErrorResponse() bool      { return false }
func (ErrorResponseError[E]) IsExceptionError() bool { return false }
func (ErrorResponseError[E]) IsErrorResponse() bool  { return true }

func (e ExceptionError[E]) Error() string {
	if e.Err == nil {
		return "exception error"
	}
	return "exception error: " + e.Err.Error()
}

// Unwrap exposes the wrapped failure to errors.Is and errors.As.
func (e ExceptionError[E]) Unwrap() error {
	return e.Err
}

func (e ErrorResponseError[E]) Error() string {
	return fmt.Sprintf("error response: status %d: %v", e.StatusCode, e.Body)
}

// MatchHTTPError is the catamorphism over HTTPError.
func MatchHTTPError[E, R any](
	h HTTPError[E],
	onException func(error) R,
	onErrorResponse func(body E, statusCode int, h headers.Collection) R,
) R {
	switch v := h.(type) {
	case ExceptionError[E]:
		return onException(v.Err)
	case ErrorResponseError[E]:
		return onErrorResponse(v.Body, v.StatusCode, v.Headers)
	default:
		panic(fmt.Errorf("result: nil HTTPError"))
	}
}
