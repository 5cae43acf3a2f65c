package restclient

import (
	"context"
	"reflect"
)

// Send dispatches req and deserializes a 2xx body into T. Non-2xx responses are returned
// as *StatusError, or with a zero Body when throw-on-failure is off for the request.
func Send[T any](ctx context.Context, c *Client, req *Request) (*Response[T], error) {
	raw, err := c.exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	if !raw.IsSuccess() {
		return retype[T](raw), nil
	}

	resp := retype[T](raw)
	if err := c.decode(raw, &resp.Body); err != nil {
		c.logFailure(req, err)
		return nil, err
	}
	return resp, nil
}

func retype[T any](raw *Response[[]byte]) *Response[T] {
	return &Response[T]{
		StatusCode: raw.StatusCode,
		Headers:    raw.Headers,
		RawBody:    raw.RawBody,
		RequestURL: raw.RequestURL,
		Method:     raw.Method,
		Stats:      raw.Stats,
	}
}

// decode fills target from the raw body. []byte targets receive the bytes unchanged and
// an empty body leaves any other target at its zero value.
func (c *Client) decode(raw *Response[[]byte], target any) error {
	if b, ok := target.(*[]byte); ok {
		*b = raw.RawBody
		return nil
	}
	if len(raw.RawBody) == 0 {
		return nil
	}
	if err := c.serializer.Deserialize(raw.RawBody, raw.Headers, target); err != nil {
		contentType, _ := raw.Headers.Get("Content-Type")
		return &DeserializationError{
			Body:        raw.RawBody,
			Target:      reflect.TypeOf(target).Elem(),
			ContentType: contentType,
			Err:         err,
		}
	}
	return nil
}
