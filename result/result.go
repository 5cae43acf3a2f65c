// Package result provides closed sum types for exception-free error handling.
//
// A Result[S, F] is either a Success carrying a value of type S or a Failure carrying
// a value of type F. The set of variants is sealed: only this package can implement
// the Result interface, so a type switch over Success and Failure is exhaustive.
//
//	r := result.Ok[int, string](4)
//	doubled := result.Map(r, func(v int) int { return v * 2 })
//	msg := result.Match(doubled,
//		func(v int) string { return fmt.Sprint("got ", v) },
//		func(e string) string { return "failed: " + e },
//	)
//
// All operations are pure and return new values, so results can be shared freely
// between goroutines.
package result

import (
	"errors"
	"fmt"
)

// ErrNilResult is the panic value raised when an operation receives a nil Result.
var ErrNilResult = errors.New("result: nil Result")

// Result is the outcome of a computation that either succeeded with S or failed with F.
type Result[S, F any] interface {
	// IsOk reports whether the result is a Success.
	IsOk() bool
	// IsError reports whether the result is a Failure.
	IsError() bool
	// Tap invokes the callback matching the variant, when not nil, and returns the
	// receiver unchanged.
	Tap(onOk func(S), onError func(F)) Result[S, F]
	// GetValueOrDefault returns the success value or fallback.
	GetValueOrDefault(fallback S) S
	// GetValueOrElse returns the success value or the value computed by provider.
	// The provider is only called for a Failure.
	GetValueOrElse(provider func() S) S
	// String renders the result as Ok(v) or Error(e).
	String() string

	sealed()
}

// Success is the Ok variant of Result.
type Success[S, F any] struct {
	Value S
}

// Failure is the Error variant of Result.
type Failure[S, F any] struct {
	Value F
}

var (
	_ Result[int, string] = Success[int, string]{}
	_ Result[int, string] = Failure[int, string]{}
)

// Ok constructs a successful Result.
func Ok[S, F any](value S) Result[S, F] {
	return Success[S, F]{Value: value}
}

// Error constructs a failed Result.
func Error[S, F any](value F) Result[S, F] {
	return Failure[S, F]{Value: value}
}

func (Success[S, F]) sealed() {}
func (Failure[S, F]) sealed() {}

// IsOk reports true for a Success.
func (Success[S, F]) IsOk() bool { return true }

// IsError reports false for a Success.
func (Success[S, F]) IsError() bool { return false }

// IsOk reports false for a Failure.
func (Failure[S, F]) IsOk() bool { return false }

// IsError reports true for a Failure.
func (Failure[S, F]) IsError() bool { return true }

// Tap calls onOk with the value when it is non-nil and returns s unchanged.
func (s Success[S, F]) Tap(onOk func(S), _ func(F)) Result[S, F] {
	if onOk != nil {
		onOk(s.Value)
	}
	return s
}

// Tap calls onError with the failure when it is non-nil and returns f unchanged.
func (f Failure[S, F]) Tap(_ func(S), onError func(F)) Result[S, F] {
	if onError != nil {
		onError(f.Value)
	}
	return f
}

// GetValueOrDefault returns the success value.
func (s Success[S, F]) GetValueOrDefault(S) S { return s.Value }

// GetValueOrDefault returns fallback.
func (Failure[S, F]) GetValueOrDefault(fallback S) S { return fallback }

// GetValueOrElse returns the success value without calling the provider.
func (s Success[S, F]) GetValueOrElse(func() S) S { return s.Value }

// GetValueOrElse returns the provider's value.
func (Failure[S, F]) GetValueOrElse(provider func() S) S { return provider() }

// String formats the result as Ok(value).
func (s Success[S, F]) String() string { return fmt.Sprintf("Ok(%v)", s.Value) }

// String formats the result as Error(failure).
func (f Failure[S, F]) String() string { return fmt.Sprintf("Error(%v)", f.Value) }

// Match is the catamorphism over Result: exactly one of onOk or onError runs and its
// return value is returned.
func Match[S, F, R any](r Result[S, F], onOk func(S) R, onError func(F) R) R {
	switch v := r.(type) {
	case Success[S, F]:
		return onOk(v.Value)
	case Failure[S, F]:
		return onError(v.Value)
	default:
		panic(ErrNilResult)
	}
}

// Map applies f to the success value. A Failure is returned with the same failure value
// and f is not called. Panics raised by f propagate.
func Map[S, F, S2 any](r Result[S, F], f func(S) S2) Result[S2, F] {
	return Match(r,
		func(v S) Result[S2, F] { return Ok[S2, F](f(v)) },
		func(e F) Result[S2, F] { return Error[S2](e) },
	)
}

// MapError applies f to the failure value. A Success passes through and f is not called.
func MapError[S, F, F2 any](r Result[S, F], f func(F) F2) Result[S, F2] {
	return Match(r,
		func(v S) Result[S, F2] { return Ok[S, F2](v) },
		func(e F) Result[S, F2] { return Error[S](f(e)) },
	)
}

// Bind sequences a failure-aware computation. On Failure, f is never invoked.
func Bind[S, F, S2 any](r Result[S, F], f func(S) Result[S2, F]) Result[S2, F] {
	return Match(r,
		f,
		func(e F) Result[S2, F] { return Error[S2](e) },
	)
}

// UnsafeValue returns the success value and panics on a Failure.
// Intended for tests; production code should use Match or Bind.
func UnsafeValue[S, F any](r Result[S, F]) S {
	return GetValueOrPanic(r, "result: expected Ok")
}

// UnsafeError returns the failure value and panics on a Success.
// Intended for tests; production code should use Match or Bind.
func UnsafeError[S, F any](r Result[S, F]) F {
	return GetErrorOrPanic(r, "result: expected Error")
}
