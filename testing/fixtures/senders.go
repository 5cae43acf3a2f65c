package fixtures

import (
	"net/http"
	"time"

	"github.com/gaborage/go-restkit/testing/mocks"
)

// Content type constants
const (
	ApplicationJSONContentType = "application/json"
	ApplicationCBORContentType = "application/cbor"
	TextPlainContentType       = "text/plain"
)

// NewWorkingSender creates a mock sender that answers every request with status and a
// JSON body. This is useful for testing happy path scenarios.
func NewWorkingSender(status int, body string) *mocks.MockSender {
	sender := mocks.NewMockSender()
	sender.ExpectStatus(status, []byte(body), "Content-Type", ApplicationJSONContentType)
	return sender
}

// NewFlakySender creates a mock sender that answers the first failures requests with
// failStatus and every later request with 200 and body. This is useful for testing
// retry logic.
func NewFlakySender(failures, failStatus int, body string) *mocks.MockSender {
	sender := mocks.NewMockSender()
	if failures > 0 {
		sender.ExpectStatus(failStatus, nil).Times(failures)
	}
	sender.ExpectStatus(http.StatusOK, []byte(body), "Content-Type", ApplicationJSONContentType)
	return sender
}

// NewFailingSender creates a mock sender whose every attempt fails with err before a
// response is received.
func NewFailingSender(err error) *mocks.MockSender {
	sender := mocks.NewMockSender()
	sender.ExpectError(err)
	return sender
}

// NewSlowSender creates a mock sender that answers 200 after delay, or returns the
// request context error if it ends first.
func NewSlowSender(delay time.Duration) *mocks.MockSender {
	sender := mocks.NewMockSender()
	sender.ExpectResponder(func(req *http.Request) (*http.Response, error) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-timer.C:
			return mocks.NewResponse(req, http.StatusOK, nil), nil
		}
	})
	return sender
}
