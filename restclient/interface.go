package restclient

import (
	"context"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/gaborage/go-restkit/headers"
	"github.com/gaborage/go-restkit/serialization"
	"github.com/gaborage/go-restkit/trace"
)

const (
	// HeaderXRequestID is the default header name for request tracing
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = trace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = trace.HeaderTraceState
)

// Method is the HTTP verb of a Request.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodPatch
	MethodDelete
	MethodHead
	MethodOptions
	// MethodCustom sends Request.CustomMethod verbatim.
	MethodCustom
)

var methodNames = map[Method]string{
	MethodGet:     nethttp.MethodGet,
	MethodPost:    nethttp.MethodPost,
	MethodPut:     nethttp.MethodPut,
	MethodPatch:   nethttp.MethodPatch,
	MethodDelete:  nethttp.MethodDelete,
	MethodHead:    nethttp.MethodHead,
	MethodOptions: nethttp.MethodOptions,
	MethodCustom:  "CUSTOM",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseMethod maps a verb to a Method. Unknown verbs map to MethodCustom.
func ParseMethod(verb string) Method {
	for m, name := range methodNames {
		if m != MethodCustom && name == verb {
			return m
		}
	}
	return MethodCustom
}

// Request describes one REST call. The zero Method is GET.
type Request struct {
	// URL is absolute, or relative to the client base URL.
	URL    string
	Method Method
	// CustomMethod is the verb sent when Method is MethodCustom.
	CustomMethod string
	// Body is nil for no body; []byte and string are sent verbatim, anything else
	// goes through the client serializer.
	Body    any
	Headers headers.Collection
	Query   url.Values
	Auth    *BasicAuth
	// ErrorOnFailure overrides the client's throw-on-failure flag when set.
	ErrorOnFailure *bool
}

// Verb returns the HTTP verb that will be sent.
func (r *Request) Verb() string {
	if r.Method == MethodCustom {
		return r.CustomMethod
	}
	return r.Method.String()
}

// Response is a classified HTTP response with a typed body.
type Response[T any] struct {
	StatusCode int
	Headers    headers.Collection
	RawBody    []byte
	Body       T
	RequestURL string
	Method     string
	Stats      Stats
}

// IsSuccess reports a 2xx status.
func (r *Response[T]) IsSuccess() bool {
	return IsSuccessStatus(r.StatusCode)
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
	Attempts    int
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	// Name selects the pooled transport.
	Name                 string
	BaseURL              string
	Timeout              time.Duration
	DefaultHeaders       headers.Collection
	ThrowOnFailure       bool
	Serializer           serialization.Serializer
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	BasicAuth            *BasicAuth
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new trace ID when none is present (default: uuid)
	NewTraceID func() string
	// TraceIDExtractor allows advanced extraction of a trace ID from context; return ok=false to fallback to generator
	TraceIDExtractor func(_ context.Context) (traceID string, ok bool)
	// EnableW3CTrace enables W3C Trace Context (traceparent/tracestate) propagation and generation
	EnableW3CTrace bool
	// Decompressors maps a Content-Encoding token to its decoder.
	Decompressors map[string]Decompressor
}
