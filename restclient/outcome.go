package restclient

import (
	"context"

	"github.com/gaborage/go-restkit/result"
)

// Outcome is the result of a typed call: the response on success, an HTTPError otherwise.
type Outcome[T, E any] = result.Result[*Response[T], result.HTTPError[E]]

// Call dispatches req and folds every failure into the result: non-2xx responses become
// ErrorResponseError with the body parsed into E, and every other failure becomes
// ExceptionError. Only the caller's cancellation is returned as error.
func Call[T, E any](ctx context.Context, c *Client, req *Request) (result.Result[T, result.HTTPError[E]], error) {
	out, err := CallResponse[T, E](ctx, c, req)
	if err != nil {
		return nil, err
	}
	return result.Map(out, func(r *Response[T]) T { return r.Body }), nil
}

// CallResponse is Call keeping the full response on success.
func CallResponse[T, E any](ctx context.Context, c *Client, req *Request) (Outcome[T, E], error) {
	if req != nil {
		noThrow := false
		r := *req
		r.ErrorOnFailure = &noThrow
		req = &r
	}

	raw, err := c.exchange(ctx, req)
	if err != nil {
		if IsCancellation(err) {
			return nil, err
		}
		return exception[T, E](err), nil
	}

	if !raw.IsSuccess() {
		var body E
		if err := c.decode(raw, &body); err != nil {
			c.logFailure(req, err)
			return exception[T, E](err), nil
		}
		return result.Error[*Response[T]](result.FromErrorResponse(body, raw.StatusCode, raw.Headers)), nil
	}

	resp := retype[T](raw)
	if err := c.decode(raw, &resp.Body); err != nil {
		c.logFailure(req, err)
		return exception[T, E](err), nil
	}
	return result.Ok[*Response[T], result.HTTPError[E]](resp), nil
}

func exception[T, E any](err error) Outcome[T, E] {
	return result.Error[*Response[T]](result.FromException[E](err))
}
