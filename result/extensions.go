package result

import (
	"fmt"
	"iter"
	"slices"
)

// Sequence turns a sequence of results into a result of all success values, in order.
// It stops pulling from results at the first Failure and returns it, so elements after
// the first failure are never evaluated when results is lazy.
func Sequence[S, F any](results iter.Seq[Result[S, F]]) Result[[]S, F] {
	values := make([]S, 0)
	for r := range results {
		switch v := r.(type) {
		case Success[S, F]:
			values = append(values, v.Value)
		case Failure[S, F]:
			return Error[[]S](v.Value)
		default:
			panic(ErrNilResult)
		}
	}
	return Ok[[]S, F](values)
}

// SequenceSlice is Sequence over a slice.
func SequenceSlice[S, F any](results []Result[S, F]) Result[[]S, F] {
	return Sequence(slices.Values(results))
}

// Flatten removes one level of nesting. It is equivalent to Bind with the identity function.
func Flatten[S, F any](r Result[Result[S, F], F]) Result[S, F] {
	return Bind(r, func(inner Result[S, F]) Result[S, F] { return inner })
}

// Combine lifts a two-argument function over results. When r1 is a Failure its value
// is returned and r2 is not inspected; r2's failure only surfaces when r1 succeeded.
// combine is never called unless both results are successes.
func Combine[S1, S2, S, F any](r1 Result[S1, F], r2 Result[S2, F], combine func(S1, S2) S) Result[S, F] {
	return Bind(r1, func(v1 S1) Result[S, F] {
		return Map(r2, func(v2 S2) S { return combine(v1, v2) })
	})
}

// Filter downgrades a Success whose value fails predicate to Error(errorOnFalse).
// A Failure passes through unchanged and predicate is not evaluated.
func Filter[S, F any](r Result[S, F], predicate func(S) bool, errorOnFalse F) Result[S, F] {
	return Bind(r, func(v S) Result[S, F] {
		if predicate(v) {
			return r
		}
		return Error[S](errorOnFalse)
	})
}

// GetValueOrPanic returns the success value, or panics with message and the failure value.
// Intended for test assertions.
func GetValueOrPanic[S, F any](r Result[S, F], message string) S {
	return Match(r,
		func(v S) S { return v },
		func(e F) S { panic(fmt.Sprintf("%s: got Error(%v)", message, e)) },
	)
}

// GetErrorOrPanic returns the failure value, or panics with message and the success value.
// Intended for test assertions.
func GetErrorOrPanic[S, F any](r Result[S, F], message string) F {
	return Match(r,
		func(v S) F { panic(fmt.Sprintf("%s: got Ok(%v)", message, v)) },
		func(e F) F { return e },
	)
}

// FromTuple converts a Go (value, error) pair into a Result.
func FromTuple[S any](value S, err error) Result[S, error] {
	if err != nil {
		return Error[S](err)
	}
	return Ok[S, error](value)
}

// Wrap runs fn and captures its (value, error) return as a Result.
func Wrap[S any](fn func() (S, error)) Result[S, error] {
	return FromTuple(fn())
}

// Unwrap exposes both sides of a result. ok is true for a Success; the side that is not
// inhabited holds its zero value.
func Unwrap[S, F any](r Result[S, F]) (value S, failure F, ok bool) {
	switch v := r.(type) {
	case Success[S, F]:
		return v.Value, failure, true
	case Failure[S, F]:
		return value, v.Value, false
	default:
		panic(ErrNilResult)
	}
}
