package restclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-restkit/headers"
	"github.com/gaborage/go-restkit/logger"
	"github.com/gaborage/go-restkit/result"
	"github.com/gaborage/go-restkit/serialization"
	"github.com/gaborage/go-restkit/testing/fakeapi"
	"github.com/gaborage/go-restkit/testing/fixtures"
	"github.com/gaborage/go-restkit/testing/mocks"
)

// newAPIClient builds a client against a fresh fake API with its own transport pool.
func newAPIClient(t *testing.T, configure func(*Builder)) (*Client, *fakeapi.Server, *fakeLogger) {
	t.Helper()
	api := fakeapi.New(t)
	log := &fakeLogger{}

	b := NewBuilder(log).
		WithName(t.Name()).
		WithBaseURL(api.URL).
		WithTransportFactory(NewTransportPool())
	if configure != nil {
		configure(b)
	}
	return mustBuild(t, b), api, log
}

func TestNewClient(t *testing.T) {
	c := NewClient(logger.Nop())
	require.NotNil(t, c)
	assert.Equal(t, DefaultClientName, c.Name())
	assert.Equal(t, serialization.ContentTypeJSON, c.Serializer().ContentType())
}

func TestBuilderDefaults(t *testing.T) {
	c := mustBuild(t, NewBuilder(nil))

	assert.Equal(t, DefaultTimeout, c.config.Timeout)
	assert.True(t, c.config.ThrowOnFailure)
	assert.True(t, c.config.EnableW3CTrace)
	assert.Equal(t, HeaderXRequestID, c.config.TraceIDHeader)
	assert.NotNil(t, c.logger, "nil logger falls back to a no-op logger")
	assert.Same(t, DefaultTransportPool(), c.transports)
}

func TestBuilderIsolation(t *testing.T) {
	b := NewBuilder(nil).WithRequestInterceptor(func(context.Context, *http.Request) error { return nil })
	first := mustBuild(t, b)

	b.WithRequestInterceptor(func(context.Context, *http.Request) error { return nil }).WithTimeout(time.Second)
	second := mustBuild(t, b)

	assert.Len(t, first.config.RequestInterceptors, 1, "built clients do not see later builder changes")
	assert.Equal(t, DefaultTimeout, first.config.Timeout)
	assert.Len(t, second.config.RequestInterceptors, 2)
}

func TestClientHTTPMethods(t *testing.T) {
	c, api, _ := newAPIClient(t, nil)
	ctx := context.Background()

	t.Run("GET", func(t *testing.T) {
		resp, err := c.Get(ctx, &Request{URL: "/users/1"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"id":1,"name":"Alice","email":"alice@example.com"}`, string(resp.Body))
		assert.Equal(t, http.MethodGet, resp.Method)
		assert.Equal(t, api.URL+"/users/1", resp.RequestURL)
	})

	t.Run("POST", func(t *testing.T) {
		resp, err := c.Post(ctx, &Request{URL: "/users", Body: fakeapi.User{Name: "Carol"}})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "/users/3", resp.Headers.Value("Location"))

		last := api.LastRequest()
		assert.Equal(t, serialization.ContentTypeJSON, last.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"id":0,"name":"Carol"}`, string(last.Body))
	})

	t.Run("PUT", func(t *testing.T) {
		resp, err := c.Put(ctx, &Request{URL: "/users/2", Body: fakeapi.User{Name: "Robert"}})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		stored, ok := api.User(2)
		require.True(t, ok)
		assert.Equal(t, "Robert", stored.Name)
	})

	t.Run("PATCH", func(t *testing.T) {
		resp, err := c.Patch(ctx, &Request{URL: "/users/1", Body: map[string]string{"email": "a@example.org"}})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		stored, _ := api.User(1)
		assert.Equal(t, "a@example.org", stored.Email)
		assert.Equal(t, "Alice", stored.Name)
	})

	t.Run("DELETE", func(t *testing.T) {
		resp, err := c.Delete(ctx, &Request{URL: "/users/3"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, resp.Body)

		_, ok := api.User(3)
		assert.False(t, ok)
	})

	t.Run("verb helpers override the request method", func(t *testing.T) {
		req := &Request{URL: "/echo", Method: MethodPost}
		resp, err := c.Get(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, resp.Method)
		assert.Equal(t, MethodPost, req.Method, "the caller's request is not modified")
	})

	t.Run("custom method", func(t *testing.T) {
		resp, err := c.Do(ctx, &Request{URL: "/echo", Method: MethodCustom, CustomMethod: fakeapi.MethodPurge})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, fakeapi.MethodPurge, api.LastRequest().Method)
	})

	t.Run("HEAD", func(t *testing.T) {
		resp, err := c.Do(ctx, &Request{URL: "/echo", Method: MethodHead})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Body)
	})
}

func TestClientSendsHeadersAndQuery(t *testing.T) {
	c, api, _ := newAPIClient(t, func(b *Builder) {
		b.WithDefaultHeader(testAPIKey, testAPIValue).WithBasicAuth("user", "pass")
	})

	_, err := c.Get(context.Background(), &Request{
		URL:     "/echo?page=2",
		Query:   url.Values{"sort": {"name"}},
		Headers: headers.New("X-Tag", "a").Append("X-Tag", "b"),
	})
	require.NoError(t, err)

	last := api.LastRequest()
	assert.Equal(t, "2", last.Query.Get("page"))
	assert.Equal(t, "name", last.Query.Get("sort"))
	assert.Equal(t, testAPIValue, last.Header.Get(testAPIKey))
	assert.Equal(t, []string{"a", "b"}, last.Header.Values("X-Tag"))
	assert.NotEmpty(t, last.Header.Get(HeaderXRequestID))
	assert.NotEmpty(t, last.Header.Get(HeaderTraceParent))
	assert.Empty(t, last.Header.Get("Content-Type"), "no body, no content headers")

	user, pass, ok := (&http.Request{Header: last.Header}).BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "pass", pass)
}

func TestClientErrorHandling(t *testing.T) {
	ctx := context.Background()

	t.Run("non-2xx throws by default", func(t *testing.T) {
		c, _, log := newAPIClient(t, nil)

		resp, err := c.Get(ctx, &Request{URL: "/users/42"})
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode())
		assert.JSONEq(t, `{"code":404,"message":"user 42 not found"}`, string(statusErr.Body()))
		assert.True(t, IsHTTPStatusError(err, http.StatusNotFound))
		require.NotNil(t, resp, "the response accompanies the status error")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		assert.Len(t, log.eventsByMessage(testRestClientResponse), 1)
	})

	t.Run("throw-on-failure disabled on the client", func(t *testing.T) {
		c, _, _ := newAPIClient(t, func(b *Builder) { b.WithThrowOnFailure(false) })

		resp, err := c.Get(ctx, &Request{URL: "/status/500"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.False(t, resp.IsSuccess())
	})

	t.Run("request override wins over the client flag", func(t *testing.T) {
		c, _, _ := newAPIClient(t, nil)

		resp, err := c.Get(ctx, &Request{URL: "/status/409", ErrorOnFailure: boolPtr(false)})
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		c2, _, _ := newAPIClient(t, func(b *Builder) { b.WithThrowOnFailure(false) })
		_, err = c2.Get(ctx, &Request{URL: "/status/409", ErrorOnFailure: boolPtr(true)})
		assert.True(t, IsHTTPStatusError(err, http.StatusConflict))
	})

	t.Run("validation errors are logged once", func(t *testing.T) {
		c, api, log := newAPIClient(t, nil)

		_, err := c.Do(ctx, nil)
		assert.True(t, IsErrorType(err, ErrorTypeValidation))
		assert.Len(t, log.eventsByMessage(testRestClientFailed), 1)
		assert.Empty(t, api.Requests())
	})

	t.Run("network error", func(t *testing.T) {
		c := mustBuild(t, NewBuilder(&fakeLogger{}).
			WithName(t.Name()).
			WithTransportFactory(NewTransportPool()).
			WithTimeout(2*time.Second))

		// Port 1 on loopback refuses connections
		_, err := c.Get(ctx, &Request{URL: "http://127.0.0.1:1/unreachable"})
		var sendErr *SendError
		require.ErrorAs(t, err, &sendErr)
		assert.Equal(t, ErrorTypeNetwork, sendErr.Type())
		assert.Equal(t, http.MethodGet, sendErr.Method)
		assert.Equal(t, "http://127.0.0.1:1/unreachable", sendErr.URL)
	})

	t.Run("response interceptor failure", func(t *testing.T) {
		boom := errors.New("rejected")
		c, _, _ := newAPIClient(t, func(b *Builder) {
			b.WithResponseInterceptor(func(_ context.Context, _ *http.Request, resp *http.Response) error {
				if resp.StatusCode == http.StatusOK {
					return boom
				}
				return nil
			})
		})

		_, err := c.Get(ctx, &Request{URL: "/users/1"})
		var interceptorErr *InterceptorError
		require.ErrorAs(t, err, &interceptorErr)
		assert.Equal(t, "response", interceptorErr.Stage)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unsupported response encoding", func(t *testing.T) {
		sender := mocks.NewMockSender()
		sender.ExpectStatus(http.StatusOK, []byte("???"), "Content-Encoding", "br")
		c := mustBuild(t, NewBuilder(&fakeLogger{}).WithSendFunc(sender.Send).WithTransportFactory(NewTransportPool()))

		_, err := c.Get(ctx, &Request{URL: testBaseURL})
		assert.True(t, IsErrorType(err, ErrorTypeNetwork))
		assert.ErrorContains(t, err, `unsupported content encoding "br"`)
	})
}

func TestClientTimeouts(t *testing.T) {
	t.Run("client timeout", func(t *testing.T) {
		c, _, log := newAPIClient(t, func(b *Builder) { b.WithTimeout(50 * time.Millisecond) })

		start := time.Now()
		_, err := c.Get(context.Background(), &Request{URL: "/slow?delay=2s"})
		var sendErr *SendError
		require.ErrorAs(t, err, &sendErr)
		assert.True(t, sendErr.Timeout())
		assert.Equal(t, ErrorTypeTimeout, sendErr.Type())
		assert.Equal(t, 50*time.Millisecond, sendErr.Limit)
		assert.False(t, IsCancellation(err))
		assert.Less(t, time.Since(start), time.Second)

		failures := log.eventsByMessage(testRestClientFailed)
		require.Len(t, failures, 1)
		assert.Equal(t, string(ErrorTypeTimeout), failures[0].fields["error_type"])
	})

	t.Run("caller deadline is returned unwrapped", func(t *testing.T) {
		c, _, log := newAPIClient(t, func(b *Builder) { b.WithTimeout(10 * time.Second) })

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := c.Get(ctx, &Request{URL: "/slow?delay=2s"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, IsCancellation(err))

		var clientErr ClientError
		assert.False(t, errors.As(err, &clientErr))
		assert.Len(t, log.eventsByLevel("warn"), 1)
		assert.Empty(t, log.eventsByMessage(testRestClientFailed))
	})

	t.Run("caller cancellation", func(t *testing.T) {
		c, _, _ := newAPIClient(t, nil)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(30 * time.Millisecond)
			cancel()
		}()
		_, err := c.Get(ctx, &Request{URL: "/slow?delay=2s"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("timeout reaches a custom send function", func(t *testing.T) {
		sender := fixtures.NewSlowSender(2 * time.Second)
		c := mustBuild(t, NewBuilder(nil).WithSendFunc(sender.Send).WithTimeout(30*time.Millisecond).WithTransportFactory(NewTransportPool()))

		_, err := c.Get(context.Background(), &Request{URL: testBaseURL + "/users/1"})
		assert.True(t, IsErrorType(err, ErrorTypeTimeout))
		assert.Equal(t, 1, sender.Attempts())
	})

	t.Run("timeout is per call and does not mutate the pooled handle", func(t *testing.T) {
		pool := NewTransportPool()
		api := fakeapi.New(t)
		short := mustBuild(t, NewBuilder(nil).WithName("shared").WithBaseURL(api.URL).WithTransportFactory(pool).WithTimeout(20*time.Millisecond))
		long := mustBuild(t, NewBuilder(nil).WithName("shared").WithBaseURL(api.URL).WithTransportFactory(pool).WithTimeout(5*time.Second))

		_, err := short.Get(context.Background(), &Request{URL: "/slow?delay=200ms"})
		assert.True(t, IsErrorType(err, ErrorTypeTimeout))

		resp, err := long.Get(context.Background(), &Request{URL: "/slow?delay=100ms"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Zero(t, pool.Acquire("shared").Timeout)
	})
}

func TestClientRetries(t *testing.T) {
	c, api, log := newAPIClient(t, func(b *Builder) { b.WithRetries(3, time.Millisecond) })

	resp, err := c.Get(context.Background(), &Request{URL: "/flaky/retry?fail=2"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, resp.Stats.Attempts)
	assert.Equal(t, 3, api.Hits("/flaky/retry"))

	responses := log.eventsByMessage(testRestClientResponse)
	require.Len(t, responses, 1, "one response log per call")
	assert.Equal(t, 3, responses[0].fields["attempts"])
}

func TestClientRetriesPostBody(t *testing.T) {
	sender := fixtures.NewFlakySender(1, http.StatusServiceUnavailable, `{"id":9,"name":"Dana"}`)
	c := mustBuild(t, NewBuilder(nil).WithSendFunc(sender.Send).WithRetries(2, time.Millisecond).WithTransportFactory(NewTransportPool()))

	resp, err := Send[fakeapi.User](context.Background(), c, &Request{URL: testBaseURL + "/users", Method: MethodPost, Body: fakeapi.User{Name: "Dana"}})
	require.NoError(t, err)
	assert.Equal(t, "Dana", resp.Body.Name)

	bodies := sender.Bodies()
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
}

func TestClientCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})
	c, api, _ := newAPIClient(t, func(b *Builder) { b.WithCircuitBreaker(cb) })
	ctx := context.Background()

	for range 2 {
		_, err := c.Get(ctx, &Request{URL: "/status/503"})
		assert.True(t, IsHTTPStatusError(err, http.StatusServiceUnavailable))
	}
	assert.Equal(t, StateOpen, cb.State())

	_, err := c.Get(ctx, &Request{URL: "/status/503"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsErrorType(err, ErrorTypeNetwork))
	assert.Equal(t, 2, api.Hits("/status/503"))
}

func TestClientRateLimit(t *testing.T) {
	c, _, _ := newAPIClient(t, func(b *Builder) { b.WithRateLimit(20, 1) })

	start := time.Now()
	for range 3 {
		_, err := c.Get(context.Background(), &Request{URL: "/echo"})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClientDecompression(t *testing.T) {
	c, _, _ := newAPIClient(t, nil)

	for _, path := range []string{"/compressed/users/1", "/zstd/users/1"} {
		t.Run(path, func(t *testing.T) {
			resp, err := Send[fakeapi.User](context.Background(), c, &Request{URL: path})
			require.NoError(t, err)
			assert.Equal(t, "Alice", resp.Body.Name)
			assert.False(t, resp.Headers.Has("Content-Encoding"), "decoded responses drop the encoding header")
		})
	}
}

func TestClientEncodedEmptyResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		switch r.URL.Path {
		case "/no-content":
			w.WriteHeader(http.StatusNoContent)
		case "/not-modified":
			w.WriteHeader(http.StatusNotModified)
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	c := mustBuild(t, NewBuilder(nil).WithBaseURL(srv.URL).WithTransportFactory(NewTransportPool()).WithThrowOnFailure(false))
	ctx := context.Background()

	tests := []struct {
		name   string
		req    *Request
		status int
	}{
		{name: "head", req: &Request{URL: "/users/1", Method: MethodHead}, status: http.StatusOK},
		{name: "no content", req: &Request{URL: "/no-content", Method: MethodDelete}, status: http.StatusNoContent},
		{name: "not modified", req: &Request{URL: "/not-modified"}, status: http.StatusNotModified},
		{name: "zero content length", req: &Request{URL: "/empty"}, status: http.StatusOK},
		{name: "failed status", req: &Request{URL: "/gone"}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.Do(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Empty(t, resp.RawBody)
		})
	}

	t.Run("outcome seam", func(t *testing.T) {
		ok, err := Call[[]byte, string](ctx, c, &Request{URL: "/no-content", Method: MethodDelete})
		require.NoError(t, err)
		assert.True(t, ok.IsOk())

		failed, err := Call[[]byte, string](ctx, c, &Request{URL: "/gone"})
		require.NoError(t, err)
		httpErr := result.UnsafeError(failed)
		assert.True(t, httpErr.IsErrorResponse())
	})
}

func TestClientCBOR(t *testing.T) {
	c, api, _ := newAPIClient(t, func(b *Builder) { b.WithSerializer(serialization.CBOR()) })
	ctx := context.Background()

	created, err := Send[fakeapi.User](ctx, c, &Request{URL: "/users", Method: MethodPost, Body: fakeapi.User{Name: "Erin"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, created.StatusCode)
	assert.Equal(t, "Erin", created.Body.Name)
	assert.Equal(t, serialization.ContentTypeCBOR, api.LastRequest().Header.Get("Content-Type"))

	fetched, err := Send[fakeapi.User](ctx, c, &Request{URL: fmt.Sprintf("/users/%d", created.Body.ID)})
	require.NoError(t, err)
	assert.Equal(t, created.Body, fetched.Body)
	assert.Equal(t, serialization.ContentTypeCBOR, fetched.Headers.Value("Content-Type"))
}

func TestClientStats(t *testing.T) {
	c, _, _ := newAPIClient(t, nil)
	ctx := logger.WithHTTPCounter(context.Background())

	first, err := c.Get(ctx, &Request{URL: "/echo"})
	require.NoError(t, err)
	second, err := c.Get(ctx, &Request{URL: "/echo"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Stats.CallCount)
	assert.Equal(t, int64(2), second.Stats.CallCount)
	assert.Equal(t, 1, second.Stats.Attempts)
	assert.Positive(t, second.Stats.ElapsedTime)

	assert.Equal(t, int64(2), logger.GetHTTPCounter(ctx))
	assert.Positive(t, logger.GetHTTPElapsed(ctx))
}

func TestClientConcurrentUse(t *testing.T) {
	c, api, _ := newAPIClient(t, func(b *Builder) { b.WithDefaultHeader(testAPIKey, testAPIValue) })

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := Send[fakeapi.User](context.Background(), c, &Request{URL: fmt.Sprintf("/users/%d", i%2+1)})
			if err != nil {
				errs <- err
				return
			}
			if resp.Body.ID != i%2+1 {
				errs <- fmt.Errorf("worker %d got user %d", i, resp.Body.ID)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, api.Requests(), workers)
	assert.Equal(t, int64(workers), c.callCount.Load())
}
