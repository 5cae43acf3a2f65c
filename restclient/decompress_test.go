package restclient

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlainBody = `{"id":1,"name":"Alice"}`

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func TestDecodeBody(t *testing.T) {
	plain := []byte(testPlainBody)

	tests := []struct {
		name     string
		body     []byte
		encoding string
	}{
		{name: "identity", body: plain, encoding: ""},
		{name: "explicit identity", body: plain, encoding: "identity"},
		{name: "gzip", body: gzipBytes(t, plain), encoding: "gzip"},
		{name: "gzip uppercase with spaces", body: gzipBytes(t, plain), encoding: " GZIP "},
		{name: "zstd", body: zstdBytes(t, plain), encoding: "zstd"},
		{name: "stacked gzip then zstd", body: zstdBytes(t, gzipBytes(t, plain)), encoding: "gzip, zstd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBody(bytes.NewReader(tt.body), tt.encoding, DefaultDecompressors())
			require.NoError(t, err)
			assert.Equal(t, plain, got)
		})
	}
}

func TestDecodeBodyEmpty(t *testing.T) {
	for _, encoding := range []string{"gzip", "zstd", "gzip, zstd", "br"} {
		t.Run(encoding, func(t *testing.T) {
			got, err := decodeBody(bytes.NewReader(nil), encoding, DefaultDecompressors())
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestDecodeBodyErrors(t *testing.T) {
	_, err := decodeBody(strings.NewReader("x"), "br", DefaultDecompressors())
	assert.ErrorContains(t, err, `unsupported content encoding "br"`)

	_, err = decodeBody(strings.NewReader("not gzip"), "gzip", DefaultDecompressors())
	assert.ErrorContains(t, err, "decode gzip body")
}

func TestDecodeBodyCustomDecompressor(t *testing.T) {
	upper := map[string]Decompressor{
		"x-upper": func(r io.Reader) (io.ReadCloser, error) {
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(strings.NewReader(strings.ToUpper(string(data)))), nil
		},
	}

	got, err := decodeBody(strings.NewReader("abc"), "x-upper", upper)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC"), got)
}

func TestAcceptEncoding(t *testing.T) {
	assert.Equal(t, "gzip, zstd", acceptEncoding(DefaultDecompressors()))

	onlyZstd := DefaultDecompressors()
	delete(onlyZstd, "gzip")
	assert.Equal(t, "zstd", acceptEncoding(onlyZstd))

	withCustom := DefaultDecompressors()
	withCustom["br"] = nil
	assert.Equal(t, "gzip, zstd, br", acceptEncoding(withCustom))
}

func TestBuilderWithDecompressor(t *testing.T) {
	b := NewBuilder(nil)
	original := b.config.Decompressors

	b.WithDecompressor("gzip", nil)
	assert.NotContains(t, b.config.Decompressors, "gzip")
	assert.Contains(t, original, "gzip", "registrations copy the map")

	c := mustBuild(t, b)
	assert.Equal(t, "zstd", acceptEncoding(c.config.Decompressors))
}
