package result

import (
	"errors"
	"iter"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-restkit/headers"
)

// countingSeq yields the given results and records how many were pulled.
func countingSeq(pulled *int, results ...Result[int, string]) iter.Seq[Result[int, string]] {
	return func(yield func(Result[int, string]) bool) {
		for _, r := range results {
			*pulled++
			if !yield(r) {
				return
			}
		}
	}
}

func TestSequence(t *testing.T) {
	t.Run("all ok preserves order", func(t *testing.T) {
		got := SequenceSlice([]Result[int, string]{Ok[int, string](1), Ok[int, string](2), Ok[int, string](3)})
		assert.Equal(t, Ok[[]int, string]([]int{1, 2, 3}), got)
	})

	t.Run("empty input is ok with empty slice", func(t *testing.T) {
		got := SequenceSlice[int, string](nil)
		assert.Equal(t, Ok[[]int, string]([]int{}), got)
	})

	t.Run("first error wins", func(t *testing.T) {
		got := SequenceSlice([]Result[int, string]{
			Ok[int, string](1), Error[int]("e1"), Ok[int, string](2), Error[int]("e2"),
		})
		assert.Equal(t, Error[[]int]("e1"), got)
	})

	t.Run("stops pulling after first error", func(t *testing.T) {
		pulled := 0
		got := Sequence(countingSeq(&pulled,
			Ok[int, string](1), Error[int]("e1"), Ok[int, string](2), Error[int]("e2"),
		))
		assert.Equal(t, Error[[]int]("e1"), got)
		assert.Equal(t, 2, pulled)
	})
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, Ok[int, string](1), Flatten(Ok[Result[int, string], string](Ok[int, string](1))))
	assert.Equal(t, Error[int]("inner"), Flatten(Ok[Result[int, string], string](Error[int]("inner"))))
	assert.Equal(t, Error[int]("outer"), Flatten(Error[Result[int, string]]("outer")))
}

func TestCombine(t *testing.T) {
	calls := 0
	add := func(a int, b string) string {
		calls++
		return b + "=" + string(rune('0'+a))
	}

	tests := []struct {
		name     string
		r1       Result[int, string]
		r2       Result[string, string]
		expected Result[string, string]
	}{
		{name: "both ok", r1: Ok[int, string](3), r2: Ok[string, string]("x"), expected: Ok[string, string]("x=3")},
		{name: "first error", r1: Error[int]("a"), r2: Ok[string, string]("x"), expected: Error[string]("a")},
		{name: "second error", r1: Ok[int, string](3), r2: Error[string]("b"), expected: Error[string]("b")},
		{name: "both error first wins", r1: Error[int]("a"), r2: Error[string]("b"), expected: Error[string]("a")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = 0
			assert.Equal(t, tt.expected, Combine(tt.r1, tt.r2, add))
			if tt.expected.IsError() {
				assert.Zero(t, calls)
			} else {
				assert.Equal(t, 1, calls)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	positive := func(v int) bool { return v > 0 }

	assert.Equal(t, Ok[int, string](4), Filter(Ok[int, string](4), positive, "neg"))
	assert.Equal(t, Error[int]("neg"), Filter(Ok[int, string](-4), positive, "neg"))

	calls := 0
	assert.Equal(t, Error[int]("e"), Filter(Error[int]("e"), func(int) bool { calls++; return true }, "neg"))
	assert.Zero(t, calls)
}

func TestPanicExtractors(t *testing.T) {
	assert.Equal(t, 1, GetValueOrPanic(Ok[int, string](1), "want ok"))
	assert.Equal(t, "e", GetErrorOrPanic(Error[int]("e"), "want error"))

	assert.PanicsWithValue(t, "want ok: got Error(e)", func() {
		GetValueOrPanic(Error[int]("e"), "want ok")
	})
	assert.PanicsWithValue(t, "want error: got Ok(1)", func() {
		GetErrorOrPanic(Ok[int, string](1), "want error")
	})
}

type apiError struct {
	Message string `json:"message"`
}

func TestHTTPErrorMatch(t *testing.T) {
	h := headers.New("Content-Type", "application/json")

	t.Run("error response round trip", func(t *testing.T) {
		body := apiError{Message: "not found"}
		herr := FromErrorResponse(body, http.StatusNotFound, h)

		assert.True(t, herr.IsErrorResponse())
		assert.False(t, herr.IsExceptionError())

		got := MatchHTTPError(herr,
			func(error) string { t.Fatal("exception branch must not run"); return "" },
			func(b apiError, status int, hdrs headers.Collection) string {
				assert.Equal(t, body, b)
				assert.Equal(t, http.StatusNotFound, status)
				assert.Equal(t, h, hdrs)
				return "response"
			})
		assert.Equal(t, "response", got)
		assert.Contains(t, herr.Error(), "404")
	})

	t.Run("exception round trip", func(t *testing.T) {
		cause := errors.New("connection refused")
		herr := FromException[apiError](cause)

		assert.True(t, herr.IsExceptionError())
		assert.False(t, herr.IsErrorResponse())
		assert.ErrorIs(t, herr, cause)

		got := MatchHTTPError(herr,
			func(err error) error { return err },
			func(apiError, int, headers.Collection) error { t.Fatal("response branch must not run"); return nil },
		)
		require.Same(t, cause, got)
	})

	t.Run("as result failure", func(t *testing.T) {
		r := Error[int](FromErrorResponse(apiError{Message: "nope"}, 400, headers.Collection{}))
		herr := UnsafeError(r)
		var resp ErrorResponseError[apiError]
		require.ErrorAs(t, herr, &resp)
		assert.Equal(t, "nope", resp.Body.Message)
	})
}
