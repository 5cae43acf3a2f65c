package restclient

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// ClientError represents different types of REST client errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeHTTP            ErrorType = "http"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeInterceptor     ErrorType = "interceptor"
	ErrorTypeDeserialization ErrorType = "deserialization"
	ErrorTypeHeader          ErrorType = "header"
)

var (
	// ErrMissingContentType is returned when a raw body is sent without a Content-Type header.
	ErrMissingContentType = errors.New("content type is required for raw request bodies")
	// ErrInvalidHeaderName marks a header name that is not a valid HTTP token.
	ErrInvalidHeaderName = errors.New("invalid header name")
	// ErrInvalidHeaderValue marks a header value containing forbidden bytes.
	ErrInvalidHeaderValue = errors.New("invalid header value")
)

// SendError reports a transport failure. Timeout() is true when the client timeout fired.
type SendError struct {
	Request *Request
	Method  string
	URL     string
	Err     error
	// TimedOut is set when the client timeout fired; Limit is that timeout.
	TimedOut bool
	Limit    time.Duration
}

func (e *SendError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("timeout error: %s %s (timeout: %v): %v", e.Method, e.URL, e.Limit, e.Err)
	}
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *SendError) Type() ErrorType {
	if e.Timeout() {
		return ErrorTypeTimeout
	}
	return ErrorTypeNetwork
}

func (e *SendError) Timeout() bool {
	return e.TimedOut
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx response when throw-on-failure is active.
type StatusError struct {
	Response *Response[[]byte]
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %s %s failed with status %d", e.Response.Method, e.Response.RequestURL, e.Response.StatusCode)
}

func (e *StatusError) Type() ErrorType {
	return ErrorTypeHTTP
}

func (e *StatusError) StatusCode() int {
	return e.Response.StatusCode
}

func (e *StatusError) Body() []byte {
	return e.Response.RawBody
}

// DeserializationError reports a body that could not be decoded into the target type.
type DeserializationError struct {
	Body        []byte
	Target      reflect.Type
	ContentType string
	Err         error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("deserialization error: cannot decode %d bytes (%s) into %v: %v",
		len(e.Body), e.ContentType, e.Target, e.Err)
}

func (e *DeserializationError) Type() ErrorType {
	return ErrorTypeDeserialization
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// HeaderError reports an invalid or missing header.
type HeaderError struct {
	Name string
	Err  error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("header error: %s: %v", e.Name, e.Err)
}

func (e *HeaderError) Type() ErrorType {
	return ErrorTypeHeader
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}

// ValidationError reports a request that cannot be dispatched. Err holds the cause when
// one exists, such as a serializer failure on the body.
type ValidationError struct {
	Message string
	Field   string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.Message, e.Field)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Type() ErrorType {
	return ErrorTypeValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InterceptorError wraps a failure returned by a request or response interceptor.
type InterceptorError struct {
	Stage string
	Err   error
}

func (e *InterceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s interceptor failed: %v", e.Stage, e.Err)
}

func (e *InterceptorError) Type() ErrorType {
	return ErrorTypeInterceptor
}

func (e *InterceptorError) Unwrap() error {
	return e.Err
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode() == statusCode
	}
	return false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsCancellation reports whether err is the caller's own cancellation or deadline,
// as opposed to a client error such as a client timeout.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
