package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/stretchr/testify/mock"
)

// Responder builds a fresh response for each attempt so retried calls never share a body.
type Responder func(req *http.Request) (*http.Response, error)

// MockSender provides a testify-based replacement for the innermost send step of the
// REST client. Pass its Send method to Builder.WithSendFunc.
//
// Example usage:
//
//	sender := mocks.NewMockSender()
//	sender.ExpectStatus(http.StatusServiceUnavailable, nil).Once()
//	sender.ExpectStatus(http.StatusOK, []byte(`{"id":1}`))
//
//	client, _ := restclient.NewBuilder(log).WithSendFunc(sender.Send).Build()
type MockSender struct {
	mock.Mock

	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
}

// NewMockSender creates a new mock sender
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send matches restclient.SendFunc. A Responder return value is invoked with the request.
func (m *MockSender) Send(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, body)
	m.mu.Unlock()

	args := m.Called(ctx, client, req)
	if responder, ok := args.Get(0).(Responder); ok {
		return responder(req)
	}

	var resp *http.Response
	if r := args.Get(0); r != nil {
		resp = r.(*http.Response)
	}
	return resp, args.Error(1)
}

// ExpectStatus answers any request with status and body.
func (m *MockSender) ExpectStatus(status int, body []byte, headerPairs ...string) *mock.Call {
	return m.ExpectResponder(func(req *http.Request) (*http.Response, error) {
		return NewResponse(req, status, body, headerPairs...), nil
	})
}

// ExpectError fails any request with err.
func (m *MockSender) ExpectError(err error) *mock.Call {
	return m.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil, err)
}

// ExpectResponder answers any request using fn.
func (m *MockSender) ExpectResponder(fn Responder) *mock.Call {
	return m.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(fn, nil)
}

// Requests returns the requests seen so far, in order.
func (m *MockSender) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

// Bodies returns the request bodies seen so far, in order.
func (m *MockSender) Bodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.bodies...)
}

// Attempts returns the number of requests seen.
func (m *MockSender) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// NewResponse builds an *http.Response for req with the given status, body and header pairs.
func NewResponse(req *http.Request, status int, body []byte, headerPairs ...string) *http.Response {
	h := make(http.Header)
	for i := 0; i+1 < len(headerPairs); i += 2 {
		h.Add(headerPairs[i], headerPairs[i+1])
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// MockTransportFactory provides a testify-based mock implementation of
// restclient.TransportFactory.
type MockTransportFactory struct {
	mock.Mock
}

// Acquire implements restclient.TransportFactory
func (m *MockTransportFactory) Acquire(name string) *http.Client {
	args := m.Called(name)
	if c := args.Get(0); c != nil {
		return c.(*http.Client)
	}
	return nil
}

// ExpectAcquire returns client for every name.
func (m *MockTransportFactory) ExpectAcquire(client *http.Client) *mock.Call {
	return m.On("Acquire", mock.Anything).Return(client)
}
