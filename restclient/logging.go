package restclient

import (
	"errors"
	nethttp "net/http"
)

// logRequest logs the outgoing request at info, and headers plus a body preview at
// debug when payload logging is enabled.
func (c *Client) logRequest(req *nethttp.Request, body []byte, traceID string) {
	event := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID)
	if len(req.Header) > 0 {
		event = event.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.payloadPreview(body)
	c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID).
		Interface("headers", req.Header).
		Int("body_size", len(body)).
		Str("body_truncated", truncated).
		Bytes("body_preview", preview).
		Msg("REST client request")
}

// logResponse logs the incoming response
func (c *Client) logResponse(resp *Response[[]byte], traceID string) {
	event := c.logger.Info().
		Str("direction", "inbound").
		Str("method", resp.Method).
		Str("url", resp.RequestURL).
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", traceID)
	if resp.Stats.Attempts > 1 {
		event = event.Int("attempts", resp.Stats.Attempts)
	}
	if len(resp.RawBody) > 0 {
		event = event.Int("body_size", len(resp.RawBody))
	}
	event.Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.payloadPreview(resp.RawBody)
	c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", traceID).
		Interface("headers", resp.Headers.HTTP()).
		Int("body_size", len(resp.RawBody)).
		Str("body_truncated", truncated).
		Bytes("body_preview", preview).
		Msg("REST client response")
}

// logFailure logs an error once, where it originates.
func (c *Client) logFailure(req *Request, err error) {
	event := c.logger.Error().Err(err)
	if req != nil {
		event = event.Str("method", req.Verb()).Str("url", req.URL)
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		event = event.Str("error_type", string(clientErr.Type()))
	}
	event.Msg("REST client request failed")
}

func (c *Client) payloadPreview(body []byte) ([]byte, string) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	if len(body) > limit {
		return body[:limit], "true"
	}
	return body, "false"
}
