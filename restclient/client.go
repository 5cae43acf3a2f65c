package restclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-restkit/headers"
	"github.com/gaborage/go-restkit/logger"
	"github.com/gaborage/go-restkit/restclient/internal/tracking"
	"github.com/gaborage/go-restkit/serialization"
)

const (
	// DefaultTimeout is the default request timeout duration
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPayloadLogBytes caps logged body previews when payload logging is on
	DefaultMaxPayloadLogBytes = 1024

	// DefaultClientName selects the pooled transport of unnamed clients
	DefaultClientName = "default"
)

// Client dispatches REST requests. It is immutable after Build and safe for
// concurrent use.
type Client struct {
	name       string
	baseURL    *url.URL
	logger     logger.Logger
	config     *Config
	serializer serialization.Serializer
	transports TransportFactory
	send       SendFunc
	callCount  atomic.Int64
}

// NewClient creates a new REST client with default configuration
func NewClient(log logger.Logger) *Client {
	c, _ := NewBuilder(log).Build()
	return c
}

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	config      *Config
	logger      logger.Logger
	transports  TransportFactory
	send        SendFunc
	middleware  []SendMiddleware
	retry       SendMiddleware
	breaker     SendMiddleware
	rateLimiter SendMiddleware
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Name:               DefaultClientName,
			Timeout:            DefaultTimeout,
			ThrowOnFailure:     true,
			Serializer:         serialization.JSON(),
			MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
			TraceIDHeader:      HeaderXRequestID,
			EnableW3CTrace:     true,
			Decompressors:      DefaultDecompressors(),
		},
		logger: log,
	}
}

// WithName sets the client name used to select its pooled transport.
func (b *Builder) WithName(name string) *Builder {
	if name != "" {
		b.config.Name = name
	}
	return b
}

// WithBaseURL sets the address relative request URLs resolve against.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-call timeout. Zero disables it.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries retries transport errors and 5xx responses with jittered exponential backoff.
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	if maxRetries <= 0 {
		b.retry = nil
		return b
	}
	b.retry = WithRetry(maxRetries, retryDelay)
	return b
}

// WithRateLimit limits attempts to rps per second with the given burst.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	if rps <= 0 {
		b.rateLimiter = nil
		return b
	}
	if burst <= 0 {
		burst = 1
	}
	b.rateLimiter = WithRateLimit(rate.NewLimiter(rate.Limit(rps), burst))
	return b
}

// WithCircuitBreaker guards attempts with cb.
func (b *Builder) WithCircuitBreaker(cb *CircuitBreaker) *Builder {
	if cb == nil {
		b.breaker = nil
		return b
	}
	b.breaker = WithCircuitBreaker(cb)
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{Username: username, Password: password}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key string, values ...string) *Builder {
	b.config.DefaultHeaders = b.config.DefaultHeaders.Set(key, values...)
	return b
}

// WithDefaultHeaders merges h into the default headers; h wins on conflicts.
func (b *Builder) WithDefaultHeaders(h headers.Collection) *Builder {
	b.config.DefaultHeaders = b.config.DefaultHeaders.Merge(h)
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithSerializer sets the body codec. Nil keeps the current one.
func (b *Builder) WithSerializer(s serialization.Serializer) *Builder {
	if s != nil {
		b.config.Serializer = s
	}
	return b
}

// WithThrowOnFailure controls whether non-2xx responses become *StatusError.
func (b *Builder) WithThrowOnFailure(enabled bool) *Builder {
	b.config.ThrowOnFailure = enabled
	return b
}

// WithTransportFactory replaces the default transport pool.
func (b *Builder) WithTransportFactory(f TransportFactory) *Builder {
	b.transports = f
	return b
}

// WithSendFunc replaces the innermost send step.
func (b *Builder) WithSendFunc(fn SendFunc) *Builder {
	b.send = fn
	return b
}

// WithSendMiddleware adds decorators around the send step. They run outside the
// retry, circuit breaker and rate limit decorators, in the order given.
func (b *Builder) WithSendMiddleware(mws ...SendMiddleware) *Builder {
	b.middleware = append(b.middleware, mws...)
	return b
}

// WithPayloadLogging enables debug logging of headers and body previews.
func (b *Builder) WithPayloadLogging(enabled bool, maxBytes int) *Builder {
	b.config.LogPayloads = enabled
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithTraceIDHeader sets the header carrying the trace ID.
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	if header != "" {
		b.config.TraceIDHeader = header
	}
	return b
}

// WithTraceIDGenerator sets the generator used when no trace ID is available.
func (b *Builder) WithTraceIDGenerator(fn func() string) *Builder {
	b.config.NewTraceID = fn
	return b
}

// WithTraceIDExtractor sets a custom trace ID lookup consulted before the context value.
func (b *Builder) WithTraceIDExtractor(fn func(context.Context) (string, bool)) *Builder {
	b.config.TraceIDExtractor = fn
	return b
}

// WithW3CTraceContext toggles traceparent/tracestate propagation.
func (b *Builder) WithW3CTraceContext(enabled bool) *Builder {
	b.config.EnableW3CTrace = enabled
	return b
}

// WithDecompressor registers a decoder for a Content-Encoding token. A nil decoder
// removes the token.
func (b *Builder) WithDecompressor(token string, d Decompressor) *Builder {
	decoders := make(map[string]Decompressor, len(b.config.Decompressors)+1)
	for k, v := range b.config.Decompressors {
		decoders[k] = v
	}
	if d == nil {
		delete(decoders, token)
	} else {
		decoders[token] = d
	}
	b.config.Decompressors = decoders
	return b
}

// Build creates the REST client with the configured options
func (b *Builder) Build() (*Client, error) {
	var base *url.URL
	if b.config.BaseURL != "" {
		parsed, err := url.Parse(b.config.BaseURL)
		if err != nil || !parsed.IsAbs() {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid base URL %q", b.config.BaseURL), Field: "base_url"}
		}
		base = parsed
	}

	transports := b.transports
	if transports == nil {
		transports = DefaultTransportPool()
	}

	cfg := *b.config
	cfg.RequestInterceptors = append([]RequestInterceptor(nil), b.config.RequestInterceptors...)
	cfg.ResponseInterceptors = append([]ResponseInterceptor(nil), b.config.ResponseInterceptors...)

	mws := append([]SendMiddleware(nil), b.middleware...)
	mws = append(mws, b.retry, b.breaker, b.rateLimiter)

	return &Client{
		name:       cfg.Name,
		baseURL:    base,
		logger:     logger.OrNop(b.logger),
		config:     &cfg,
		serializer: cfg.Serializer,
		transports: transports,
		send:       Chain(countAttempts(orDefault(b.send)), mws...),
	}, nil
}

func orDefault(fn SendFunc) SendFunc {
	if fn == nil {
		return DefaultSend
	}
	return fn
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.name
}

// Serializer returns the body codec.
func (c *Client) Serializer() serialization.Serializer {
	return c.serializer
}

// Do dispatches req and returns the raw response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response[[]byte], error) {
	return c.exchange(ctx, req)
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, req *Request) (*Response[[]byte], error) {
	return c.doMethod(ctx, MethodGet, req)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, req *Request) (*Response[[]byte], error) {
	return c.doMethod(ctx, MethodPost, req)
}

// Put performs a PUT request
func (c *Client) Put(ctx context.Context, req *Request) (*Response[[]byte], error) {
	return c.doMethod(ctx, MethodPut, req)
}

// Patch performs a PATCH request
func (c *Client) Patch(ctx context.Context, req *Request) (*Response[[]byte], error) {
	return c.doMethod(ctx, MethodPatch, req)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, req *Request) (*Response[[]byte], error) {
	return c.doMethod(ctx, MethodDelete, req)
}

func (c *Client) doMethod(ctx context.Context, m Method, req *Request) (*Response[[]byte], error) {
	if req == nil {
		return c.exchange(ctx, nil)
	}
	r := *req
	r.Method = m
	return c.exchange(ctx, &r)
}

func (c *Client) throwOnFailure(req *Request) bool {
	if req.ErrorOnFailure != nil {
		return *req.ErrorOnFailure
	}
	return c.config.ThrowOnFailure
}

// exchange runs the dispatch pipeline up to response classification.
func (c *Client) exchange(ctx context.Context, req *Request) (resp *Response[[]byte], err error) {
	if err := c.validateRequest(req); err != nil {
		c.logFailure(req, err)
		return nil, err
	}

	start := time.Now()
	callCount := c.callCount.Add(1)
	logger.IncrementHTTPCounter(ctx)

	verb := req.Verb()
	ex := &tracking.Exchange{Client: c.name, Method: verb, URL: req.URL}
	spanCtx, span := tracking.StartSpan(ctx, c.name, verb, req.URL)
	defer func() {
		ex.Duration = time.Since(start)
		logger.AddHTTPElapsed(ctx, ex.Duration)
		if resp != nil {
			ex.StatusCode = resp.StatusCode
		}
		if err != nil {
			ex.Err = err
			ex.ErrorType = errorTypeOf(err)
		} else if resp != nil && !resp.IsSuccess() {
			ex.ErrorType = tracking.StatusErrorType(resp.StatusCode)
		}
		tracking.EndSpan(span, ex)
		tracking.RecordExchange(ctx, ex)
	}()

	callCtx := spanCtx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(spanCtx, c.config.Timeout)
		defer cancel()
	}
	callCtx, attempts := withAttemptCounter(callCtx)

	httpClient := c.transports.Acquire(c.name)

	httpReq, payload, traceID, err := c.buildRequest(callCtx, req)
	if err != nil {
		c.logFailure(req, err)
		return nil, err
	}
	ex.URL = httpReq.URL.String()

	c.logRequest(httpReq, payload, traceID)

	httpResp, err := c.send(callCtx, httpClient, httpReq)
	ex.Attempts = *attempts
	if err != nil {
		return nil, c.sendFailure(ctx, callCtx, req, httpReq, err)
	}

	resp, err = c.buildResponse(ctx, callCtx, start, callCount, *attempts, req, httpReq, httpResp)
	if err != nil {
		return nil, err
	}

	c.logResponse(resp, traceID)

	if !resp.IsSuccess() && c.throwOnFailure(req) {
		return resp, &StatusError{Response: resp}
	}
	return resp, nil
}

// buildResponse runs response interceptors, reads and decodes the body, and builds a Response.
func (c *Client) buildResponse(
	ctx, callCtx context.Context,
	start time.Time,
	callCount int64,
	attempts int,
	req *Request,
	httpReq *nethttp.Request,
	httpResp *nethttp.Response,
) (*Response[[]byte], error) {
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(callCtx, httpReq, httpResp); err != nil {
		err = &InterceptorError{Stage: "response", Err: err}
		c.logFailure(req, err)
		return nil, err
	}

	encoding := httpResp.Header.Get("Content-Encoding")
	body, err := decodeBody(httpResp.Body, encoding, c.config.Decompressors)
	if err != nil {
		return nil, c.sendFailure(ctx, callCtx, req, httpReq, fmt.Errorf("failed to read response body: %w", err))
	}

	respHeaders := headers.FromHTTP(httpResp.Header)
	if encoding != "" {
		respHeaders = respHeaders.Without("Content-Encoding", "Content-Length")
	}

	return &Response[[]byte]{
		StatusCode: httpResp.StatusCode,
		Headers:    respHeaders,
		RawBody:    body,
		Body:       body,
		RequestURL: httpReq.URL.String(),
		Method:     httpReq.Method,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   callCount,
			Attempts:    attempts,
		},
	}, nil
}

// sendFailure classifies a send or read error. The caller's own cancellation is returned
// unwrapped; expiry of the client timeout becomes a timeout *SendError.
func (c *Client) sendFailure(ctx, callCtx context.Context, req *Request, httpReq *nethttp.Request, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.logger.Warn().
			Str("method", httpReq.Method).
			Str("url", httpReq.URL.String()).
			Err(ctxErr).
			Msg("REST client request cancelled")
		return ctxErr
	}

	sendErr := &SendError{Request: req, Method: httpReq.Method, URL: httpReq.URL.String(), Err: err}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || isNetTimeout(err) {
		sendErr.TimedOut = true
		sendErr.Limit = c.config.Timeout
	}
	c.logFailure(req, sendErr)
	return sendErr
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// runResponseInterceptors executes all response interceptors
func (c *Client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

func errorTypeOf(err error) string {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		if statusErr, ok := clientErr.(*StatusError); ok {
			return tracking.StatusErrorType(statusErr.StatusCode())
		}
		return string(clientErr.Type())
	}
	if IsCancellation(err) {
		return "cancelled"
	}
	return "error"
}
