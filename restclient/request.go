package restclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/gaborage/go-restkit/headers"
	"github.com/gaborage/go-restkit/trace"
)

// ContentHeaderNames are the headers that describe the body rather than the message.
// They are attached only when the request carries a body.
var ContentHeaderNames = []string{
	"Content-Type",
	"Content-Length",
	"Content-Encoding",
	"Content-Language",
	"Content-Location",
	"Content-Disposition",
	"Content-Range",
	"Content-MD5",
	"Expires",
	"Last-Modified",
	"Allow",
}

var contentHeaderSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ContentHeaderNames))
	for _, name := range ContentHeaderNames {
		set[headers.Canonical(name)] = struct{}{}
	}
	return set
}()

// IsContentHeader reports whether name belongs to the body envelope.
func IsContentHeader(name string) bool {
	_, ok := contentHeaderSet[headers.Canonical(name)]
	return ok
}

func (c *Client) validateRequest(req *Request) error {
	if req == nil {
		return &ValidationError{Message: "request cannot be nil", Field: "request"}
	}
	if strings.TrimSpace(req.URL) == "" && c.baseURL == nil {
		return &ValidationError{Message: "URL cannot be empty", Field: "url"}
	}
	if req.Method < MethodGet || req.Method > MethodCustom {
		return &ValidationError{Message: fmt.Sprintf("unknown method %d", req.Method), Field: "method"}
	}
	if req.Method == MethodCustom {
		if req.CustomMethod == "" {
			return &ValidationError{Message: "custom method requires a verb", Field: "custom_method"}
		}
		if !httpguts.ValidHeaderFieldName(req.CustomMethod) {
			return &ValidationError{Message: fmt.Sprintf("invalid method %q", req.CustomMethod), Field: "custom_method"}
		}
	}
	return nil
}

// resolveURL joins the request URL with the base URL and appends the query.
func (c *Client) resolveURL(req *Request) (string, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return "", &ValidationError{Message: fmt.Sprintf("invalid URL: %v", err), Field: "url"}
	}
	if !target.IsAbs() {
		if c.baseURL == nil {
			return "", &ValidationError{Message: "relative URL requires a client base URL", Field: "url"}
		}
		target = c.baseURL.ResolveReference(target)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return "", &ValidationError{Message: fmt.Sprintf("unsupported URL scheme %q", target.Scheme), Field: "url"}
	}

	if len(req.Query) > 0 {
		q := target.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	return target.String(), nil
}

// encodeBody returns the wire bytes and whether they came from the serializer.
func (c *Client) encodeBody(body any, h headers.Collection) ([]byte, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return b, false, nil
	case string:
		return []byte(b), false, nil
	default:
		data, err := c.serializer.Serialize(body, h)
		if err != nil {
			return nil, true, &ValidationError{
				Message: fmt.Sprintf("failed to serialize request body: %v", err),
				Field:   "body",
				Err:     err,
			}
		}
		return data, true, nil
	}
}

// buildRequest constructs the *http.Request: URL, body, merged headers, auth and trace
// headers, then runs request interceptors. It returns the encoded body for logging and
// the trace ID sent.
func (c *Client) buildRequest(ctx context.Context, req *Request) (*nethttp.Request, []byte, string, error) {
	target, err := c.resolveURL(req)
	if err != nil {
		return nil, nil, "", err
	}

	merged := c.config.DefaultHeaders.Merge(req.Headers)

	payload, serialized, err := c.encodeBody(req.Body, merged)
	if err != nil {
		return nil, nil, "", err
	}
	hasBody := req.Body != nil

	var body io.Reader = nethttp.NoBody
	if hasBody {
		body = bytes.NewReader(payload)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, req.Verb(), target, body)
	if err != nil {
		return nil, nil, "", &ValidationError{Message: fmt.Sprintf("failed to create HTTP request: %v", err), Field: "url"}
	}

	if err := c.applyHeaders(httpReq, merged, hasBody, serialized); err != nil {
		return nil, nil, "", err
	}
	c.applyAuth(httpReq, req)
	traceID := c.applyTraceHeaders(ctx, httpReq)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, nil, "", &InterceptorError{Stage: "request", Err: err}
	}
	return httpReq, payload, traceID, nil
}

// applyHeaders validates merged headers and splits them between the message and the
// body envelope.
func (c *Client) applyHeaders(httpReq *nethttp.Request, merged headers.Collection, hasBody, serialized bool) error {
	for name, values := range merged.All() {
		if !httpguts.ValidHeaderFieldName(name) {
			return &HeaderError{Name: name, Err: ErrInvalidHeaderName}
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return &HeaderError{Name: name, Err: ErrInvalidHeaderValue}
			}
		}

		if IsContentHeader(name) {
			if !hasBody {
				c.logger.Debug().
					Str("header", name).
					Str("url", httpReq.URL.String()).
					Msg("Dropping content header on request without body")
				continue
			}
			// The transport derives Content-Length from the body.
			if name == "Content-Length" {
				continue
			}
		}
		httpReq.Header[name] = append([]string(nil), values...)
	}

	if hasBody && httpReq.Header.Get("Content-Type") == "" {
		if !serialized {
			return &HeaderError{Name: "Content-Type", Err: ErrMissingContentType}
		}
		httpReq.Header.Set("Content-Type", c.serializer.ContentType())
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", c.serializer.ContentType())
	}
	if len(c.config.Decompressors) > 0 && httpReq.Header.Get("Accept-Encoding") == "" {
		httpReq.Header.Set("Accept-Encoding", acceptEncoding(c.config.Decompressors))
	}
	return nil
}

// applyAuth applies authentication to the HTTP request
func (c *Client) applyAuth(httpReq *nethttp.Request, req *Request) {
	// Request-specific auth takes precedence
	auth := req.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}
	if auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}
}

// applyTraceHeaders sets the trace ID header when absent and, if enabled, W3C trace
// context. It returns the trace ID carried by the request.
func (c *Client) applyTraceHeaders(ctx context.Context, httpReq *nethttp.Request) string {
	header := c.config.TraceIDHeader
	if header == "" {
		header = HeaderXRequestID
	}

	traceID := httpReq.Header.Get(header)
	if traceID == "" {
		traceID = c.traceID(ctx)
		httpReq.Header.Set(header, traceID)
	}

	if c.config.EnableW3CTrace {
		trace.InjectW3C(ctx, httpReq.Header)
	}
	return traceID
}

func (c *Client) traceID(ctx context.Context) string {
	if c.config.TraceIDExtractor != nil {
		if id, ok := c.config.TraceIDExtractor(ctx); ok && id != "" {
			return id
		}
	}
	if id, ok := trace.IDFromContext(ctx); ok {
		return id
	}
	if c.config.NewTraceID != nil {
		if id := c.config.NewTraceID(); id != "" {
			return id
		}
	}
	return trace.NewID()
}

// runRequestInterceptors executes all request interceptors
func (c *Client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// NewTraceIDInterceptor creates a request interceptor that adds trace ID headers.
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, trace.EnsureTraceID(ctx))
		}
		return nil
	}
}
