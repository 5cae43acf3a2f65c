package headers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccept      = "Accept"
	testJSON        = "application/json"
	testContentType = "Content-Type"
)

func TestNew(t *testing.T) {
	h := New(testAccept, testJSON, "x-api-key", "k1", "X-Api-Key", "k2", "dangling")

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []string{testAccept, "X-Api-Key"}, h.Names())
	assert.Equal(t, []string{"k1", "k2"}, h.Values("X-API-KEY"))
}

func TestCaseInsensitiveLookup(t *testing.T) {
	h := New(testContentType, testJSON)

	v, ok := h.Get("content-type")
	require.True(t, ok)
	assert.Equal(t, testJSON, v)
	assert.True(t, h.Has("CONTENT-TYPE"))
	assert.False(t, h.Has("Accept"))

	_, ok = h.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, h.Value("missing"))
	assert.Nil(t, h.Values("missing"))
}

func TestAppendIsImmutable(t *testing.T) {
	base := New(testAccept, testJSON)
	appended := base.Append(testAccept, "text/plain")

	assert.Equal(t, []string{testJSON}, base.Values(testAccept))
	assert.Equal(t, []string{testJSON, "text/plain"}, appended.Values(testAccept))

	t.Run("no values is a no-op", func(t *testing.T) {
		assert.Equal(t, base, base.Append("X-Empty"))
	})

	t.Run("blank name is a no-op", func(t *testing.T) {
		assert.Equal(t, base, base.Append("  ", "v"))
	})
}

func TestSetKeepsPosition(t *testing.T) {
	h := New("A", "1", "B", "2", "C", "3").Set("b", "20", "21")

	assert.Equal(t, []string{"A", "B", "C"}, h.Names())
	assert.Equal(t, []string{"20", "21"}, h.Values("B"))
}

func TestMergeOverridesWin(t *testing.T) {
	defaults := New("User-Agent", "default-agent", testAccept, testJSON, "X-Trace", "a")
	overrides := New("user-agent", "custom-agent", "X-New", "n")

	merged := defaults.Merge(overrides)

	assert.Equal(t, []string{"User-Agent", testAccept, "X-Trace", "X-New"}, merged.Names())
	assert.Equal(t, []string{"custom-agent"}, merged.Values("User-Agent"))
	assert.Equal(t, "default-agent", defaults.Value("User-Agent"))
}

func TestMergeReplacesMultipleValues(t *testing.T) {
	defaults := New(testAccept, "a").Append(testAccept, "b")
	merged := defaults.Merge(New(testAccept, "c"))

	assert.Equal(t, []string{"c"}, merged.Values(testAccept))
}

func TestWithout(t *testing.T) {
	h := New(testAccept, testJSON, testContentType, testJSON, "X-Other", "1")
	out := h.Without("content-type", "x-other")

	assert.Equal(t, []string{testAccept}, out.Names())
	assert.Equal(t, 3, h.Len())
}

func TestHTTPRoundTrip(t *testing.T) {
	src := http.Header{}
	src.Add("x-b", "2")
	src.Add("X-A", "1")
	src.Add("X-A", "11")

	c := FromHTTP(src)
	assert.Equal(t, []string{"X-A", "X-B"}, c.Names())
	assert.Equal(t, []string{"1", "11"}, c.Values("x-a"))

	out := c.HTTP()
	assert.Equal(t, []string{"1", "11"}, out.Values("X-A"))
	assert.Equal(t, "2", out.Get("X-B"))

	assert.True(t, FromHTTP(nil).IsEmpty())
}

func TestAllIteratesInOrder(t *testing.T) {
	h := New("Z", "1", "A", "2")

	var names []string
	for name, values := range h.All() {
		names = append(names, name)
		require.NotEmpty(t, values)
	}
	assert.Equal(t, []string{"Z", "A"}, names)

	count := 0
	for range h.All() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestString(t *testing.T) {
	h := New(testAccept, "a").Append(testAccept, "b").Append("X-One", "1")
	assert.Equal(t, "Accept: a, b\nX-One: 1", h.String())
	assert.Empty(t, Collection{}.String())
}
