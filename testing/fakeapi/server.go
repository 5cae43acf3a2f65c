// Package fakeapi runs an in-process HTTP upstream for end-to-end REST client tests.
//
// The server is an echo instance behind httptest. It records every request it receives
// and exposes a small set of deterministic endpoints:
//
//	GET    /users/:id           user as JSON or CBOR (negotiated by Accept), 404 problem otherwise
//	POST   /users               creates a user from a JSON or CBOR body, 201
//	PUT    /users/:id           replaces a user, 200
//	PATCH  /users/:id           updates the non-empty fields of a user, 200
//	DELETE /users/:id           204
//	ANY    /echo                reflects method, path, query, headers and body as JSON
//	GET    /status/:code        answers code with a JSON problem body
//	GET    /flaky/:key?fail=N   answers 503 for the first N calls per key, then 200
//	GET    /slow?delay=200ms    answers 200 after delay unless the client gives up first
//	GET    /compressed/users/:id   gzip-encoded response (echo Gzip middleware)
//	GET    /zstd/users/:id         zstd-encoded response
package fakeapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/propagation"

	"github.com/gaborage/go-restkit/headers"
	"github.com/gaborage/go-restkit/serialization"
	testconsts "github.com/gaborage/go-restkit/testing"
)

// MethodPurge is a non-standard verb routed to /echo.
const MethodPurge = "PURGE"

// User is the resource served under /users.
type User struct {
	ID    int    `json:"id" cbor:"id"`
	Name  string `json:"name" cbor:"name"`
	Email string `json:"email,omitempty" cbor:"email,omitempty"`
}

// Problem is the error body of every non-2xx answer.
type Problem struct {
	Code    int    `json:"code" cbor:"code"`
	Message string `json:"message" cbor:"message"`
}

// EchoedRequest is the body returned by /echo.
type EchoedRequest struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query"`
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body"`
}

// RecordedRequest is a request as the server received it.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is a running fake API.
type Server struct {
	*httptest.Server
	Echo *echo.Echo

	mu       sync.Mutex
	users    map[int]User
	nextID   int
	flaky    map[string]int
	requests []RecordedRequest
}

// New starts a fake API seeded with Alice (1) and Bob (2). It is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		users: map[int]User{
			testconsts.TestUserAliceID: {ID: testconsts.TestUserAliceID, Name: testconsts.TestNameAlice, Email: testconsts.TestEmailAlice},
			testconsts.TestUserBobID:   {ID: testconsts.TestUserBobID, Name: testconsts.TestNameBob, Email: testconsts.TestEmailBob},
		},
		nextID: testconsts.TestUserBobID + 1,
		flaky:  make(map[string]int),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.record)
	// Server spans join the caller's trace when a test provider is installed
	e.Use(otelecho.Middleware("fakeapi", otelecho.WithPropagators(propagation.TraceContext{})))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	s.routes(e)
	s.Echo = e

	s.Server = httptest.NewServer(e)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/users/:id", s.getUser)
	e.POST("/users", s.createUser)
	e.PUT("/users/:id", s.replaceUser)
	e.PATCH("/users/:id", s.patchUser)
	e.DELETE("/users/:id", s.deleteUser)

	e.Any("/echo", s.echoRequest)
	e.Add(MethodPurge, "/echo", s.echoRequest)

	e.GET("/status/:code", s.status)
	e.GET("/flaky/:key", s.flakyStatus)
	e.GET("/slow", s.slow)

	compressed := e.Group("/compressed", middleware.GzipWithConfig(middleware.GzipConfig{Level: 5}))
	compressed.GET("/users/:id", s.getUser)

	e.GET("/zstd/users/:id", s.getUserZstd)
}

// record stores a copy of every request before it is routed.
func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: req.Method,
			Path:   req.URL.Path,
			Query:  req.URL.Query(),
			Header: req.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		return next(c)
	}
}

// Requests returns every recorded request in arrival order.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request. It panics when none was recorded.
func (s *Server) LastRequest() RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		panic("fakeapi: no requests recorded")
	}
	return s.requests[len(s.requests)-1]
}

// Hits counts recorded requests for path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// User returns the stored user with id.
func (s *Server) User(id int) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// negotiate picks the serializer matching the Accept header, defaulting to JSON.
func negotiate(c echo.Context) serialization.Serializer {
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), serialization.ContentTypeCBOR) {
		return serialization.CBOR()
	}
	return serialization.JSON()
}

func respond(c echo.Context, status int, v any) error {
	s := negotiate(c)
	data, err := s.Serialize(v, headers.Collection{})
	if err != nil {
		return err
	}
	return c.Blob(status, s.ContentType(), data)
}

func problem(c echo.Context, status int, message string) error {
	return respond(c, status, Problem{Code: status, Message: message})
}

func bindUser(c echo.Context) (User, error) {
	req := c.Request()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return User{}, err
	}

	var codec serialization.Serializer = serialization.JSON()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), serialization.ContentTypeCBOR) {
		codec = serialization.CBOR()
	}
	var u User
	err = codec.Deserialize(body, headers.FromHTTP(req.Header), &u)
	return u, err
}

func userID(c echo.Context) (int, error) {
	return strconv.Atoi(c.Param("id"))
}

// lookup finds the user addressed by the path. When it reports false the problem
// response has already been written and the returned error ends the handler.
func (s *Server) lookup(c echo.Context) (User, bool, error) {
	id, err := userID(c)
	if err != nil {
		return User{}, false, problem(c, http.StatusBadRequest, "invalid user id")
	}
	s.mu.Lock()
	u, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		return User{}, false, problem(c, http.StatusNotFound, fmt.Sprintf("user %d not found", id))
	}
	return u, true, nil
}

func (s *Server) getUser(c echo.Context) error {
	u, ok, err := s.lookup(c)
	if !ok {
		return err
	}
	return respond(c, http.StatusOK, u)
}

func (s *Server) createUser(c echo.Context) error {
	u, err := bindUser(c)
	if err != nil {
		return problem(c, http.StatusBadRequest, "malformed user")
	}
	if u.Name == "" {
		return problem(c, http.StatusUnprocessableEntity, "name is required")
	}

	s.mu.Lock()
	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = u
	s.mu.Unlock()

	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/users/%d", u.ID))
	return respond(c, http.StatusCreated, u)
}

func (s *Server) replaceUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return problem(c, http.StatusBadRequest, "invalid user id")
	}
	u, err := bindUser(c)
	if err != nil {
		return problem(c, http.StatusBadRequest, "malformed user")
	}
	u.ID = id

	s.mu.Lock()
	s.users[id] = u
	s.mu.Unlock()
	return respond(c, http.StatusOK, u)
}

func (s *Server) patchUser(c echo.Context) error {
	existing, ok, err := s.lookup(c)
	if !ok {
		return err
	}
	patch, err := bindUser(c)
	if err != nil {
		return problem(c, http.StatusBadRequest, "malformed user")
	}
	if patch.Name != "" {
		existing.Name = patch.Name
	}
	if patch.Email != "" {
		existing.Email = patch.Email
	}

	s.mu.Lock()
	s.users[existing.ID] = existing
	s.mu.Unlock()
	return respond(c, http.StatusOK, existing)
}

func (s *Server) deleteUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return problem(c, http.StatusBadRequest, "invalid user id")
	}
	s.mu.Lock()
	delete(s.users, id)
	s.mu.Unlock()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) echoRequest(c echo.Context) error {
	req := c.Request()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, EchoedRequest{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.Query(),
		Headers: req.Header,
		Body:    string(body),
	})
}

func (s *Server) status(c echo.Context) error {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 200 || code > 599 {
		return problem(c, http.StatusBadRequest, "invalid status code")
	}
	if code == http.StatusNoContent {
		return c.NoContent(code)
	}
	return problem(c, code, http.StatusText(code))
}

func (s *Server) flakyStatus(c echo.Context) error {
	failures, _ := strconv.Atoi(c.QueryParam("fail"))
	key := c.Param("key")

	s.mu.Lock()
	seen := s.flaky[key]
	s.flaky[key] = seen + 1
	s.mu.Unlock()

	if seen < failures {
		return problem(c, http.StatusServiceUnavailable, "try again")
	}
	return respond(c, http.StatusOK, map[string]int{"attempt": seen + 1})
}

func (s *Server) slow(c echo.Context) error {
	delay, err := time.ParseDuration(c.QueryParam("delay"))
	if err != nil {
		delay = time.Second
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-c.Request().Context().Done():
		return nil
	case <-timer.C:
		return respond(c, http.StatusOK, map[string]string{"delay": delay.String()})
	}
}

func (s *Server) getUserZstd(c echo.Context) error {
	u, ok, err := s.lookup(c)
	if !ok {
		return err
	}
	data, err := serialization.JSON().Serialize(u, headers.Collection{})
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	compressed := enc.EncodeAll(data, nil)

	c.Response().Header().Set(echo.HeaderContentEncoding, "zstd")
	return c.Blob(http.StatusOK, serialization.ContentTypeJSON, compressed)
}
