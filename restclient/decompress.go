package restclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Decompressor wraps a response body encoded with one Content-Encoding token.
type Decompressor func(r io.Reader) (io.ReadCloser, error)

// DefaultDecompressors returns decoders for gzip and zstd.
func DefaultDecompressors() map[string]Decompressor {
	return map[string]Decompressor{
		"gzip": func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
		"zstd": func(r io.Reader) (io.ReadCloser, error) {
			d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		},
	}
}

// acceptEncoding lists the registered tokens in a stable order.
func acceptEncoding(decoders map[string]Decompressor) string {
	var tokens []string
	for _, token := range []string{"gzip", "zstd"} {
		if _, ok := decoders[token]; ok {
			tokens = append(tokens, token)
		}
	}
	for token := range decoders {
		if token != "gzip" && token != "zstd" {
			tokens = append(tokens, token)
		}
	}
	return strings.Join(tokens, ", ")
}

// decodeBody reads body, undoing every encoding listed in contentEncoding (applied in
// order, so decoded in reverse). Unknown encodings are an error. An empty body (HEAD, 204,
// 304) is returned as is whatever its declared encoding.
func decodeBody(body io.Reader, contentEncoding string, decoders map[string]Decompressor) ([]byte, error) {
	if contentEncoding == "" {
		return io.ReadAll(body)
	}

	var tokens []string
	for _, token := range strings.Split(contentEncoding, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" && token != "identity" {
			tokens = append(tokens, token)
		}
	}

	if len(tokens) == 0 {
		return io.ReadAll(body)
	}

	buffered := bufio.NewReader(body)
	if _, err := buffered.Peek(1); errors.Is(err, io.EOF) {
		return []byte{}, nil
	}

	var reader io.Reader = buffered
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	for i := len(tokens) - 1; i >= 0; i-- {
		decode, ok := decoders[tokens[i]]
		if !ok {
			return nil, fmt.Errorf("unsupported content encoding %q", tokens[i])
		}
		rc, err := decode(reader)
		if err != nil {
			return nil, fmt.Errorf("decode %s body: %w", tokens[i], err)
		}
		closers = append(closers, rc)
		reader = rc
	}

	return io.ReadAll(reader)
}
