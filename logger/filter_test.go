package logger

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type credentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
	Ignored  string `json:"-"`
	Nested   *credentials
	private  string
}

func TestFilterString(t *testing.T) {
	f := NewSensitiveDataFilter(nil)

	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{name: "plain field", key: "method", value: "GET", expected: "GET"},
		{name: "sensitive field", key: "access_token", value: "abc", expected: DefaultMaskValue},
		{name: "case insensitive", key: "X-Api-Key", value: "abc", expected: DefaultMaskValue},
		{name: "empty sensitive value", key: "token", value: "", expected: ""},
		{
			name:     "url keeps structure",
			key:      "auth_url",
			value:    "https://svc:pw@api.example.com/v1?q=1",
			expected: "https://svc:" + DefaultMaskValue + "@api.example.com/v1?q=1",
		},
		{name: "url without password", key: "auth_url", value: "https://api.example.com", expected: "https://api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.FilterString(tt.key, tt.value))
		})
	}
}

func TestFilterValue(t *testing.T) {
	f := NewSensitiveDataFilter(nil)

	t.Run("nested map", func(t *testing.T) {
		got := f.FilterValue("payload", map[string]any{
			"name":   "x",
			"secret": "s",
			"inner":  map[string]any{"token": "t", "id": 1},
		})
		assert.Equal(t, map[string]any{
			"name":   "x",
			"secret": DefaultMaskValue,
			"inner":  map[string]any{"token": DefaultMaskValue, "id": 1},
		}, got)
	})

	t.Run("http header", func(t *testing.T) {
		got := f.FilterValue("headers", http.Header{"Authorization": {"Basic x"}, "Accept": {"*/*"}})
		assert.Equal(t, map[string][]string{"Authorization": {DefaultMaskValue}, "Accept": {"*/*"}}, got)
	})

	t.Run("string map", func(t *testing.T) {
		got := f.FilterValue("headers", map[string]string{"Set-Cookie": "a=b", "Accept": "*/*"})
		assert.Equal(t, map[string]string{"Set-Cookie": DefaultMaskValue, "Accept": "*/*"}, got)
	})

	t.Run("struct pointer", func(t *testing.T) {
		got := f.FilterValue("creds", &credentials{
			User: "u", Password: "p", Ignored: "i", private: "x",
			Nested: &credentials{User: "n", Password: "np"},
		})
		assert.Equal(t, map[string]any{
			"user":     "u",
			"password": DefaultMaskValue,
			"Nested": map[string]any{
				"user":     "n",
				"password": DefaultMaskValue,
				"Nested":   (*credentials)(nil),
			},
		}, got)
	})

	t.Run("bytes pass through", func(t *testing.T) {
		assert.Equal(t, []byte("raw"), f.FilterValue("body", []byte("raw")))
	})

	t.Run("sensitive key masks whole value", func(t *testing.T) {
		assert.Equal(t, DefaultMaskValue, f.FilterValue("cookie", []string{"a", "b"}))
	})
}

func TestCustomFilterConfig(t *testing.T) {
	f := NewSensitiveDataFilter(&FilterConfig{SensitiveFields: []string{"ssn"}})

	assert.Equal(t, DefaultMaskValue, f.FilterString("customer_ssn", "123"))
	assert.Equal(t, "v", f.FilterString("password", "v"))
	assert.Equal(t, map[string]any{"ssn": DefaultMaskValue}, f.FilterFields(map[string]any{"ssn": "1"}))
}
