package domain

import "encoding/json"

// ErrorValue is the only failure shape front-ends see for provider errors.
type ErrorValue struct {
	Message string `json:"error"`
}

func (e ErrorValue) String() string { return e.Message }

// Result holds either a value or an ErrorValue, never both. Front-ends branch
// on OK rather than on error types. The zero Result holds neither and is
// returned alongside a Go error.
type Result[T any] struct {
	value T
	ok    bool
	err   *ErrorValue
}

// Success wraps a value.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Failure wraps an error message.
func Failure[T any](msg string) Result[T] {
	return Result[T]{err: &ErrorValue{Message: msg}}
}

// OK reports whether the result holds a value.
func (r Result[T]) OK() bool { return r.ok }

// Value returns the wrapped value and true, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Err returns the wrapped ErrorValue and true when the result is a failure.
func (r Result[T]) Err() (ErrorValue, bool) {
	if r.err == nil {
		return ErrorValue{}, false
	}
	return *r.err, true
}

// MarshalJSON encodes a success as the bare value, a failure as
// {"error": "..."} and the zero Result as null.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	switch {
	case r.err != nil:
		return json.Marshal(r.err)
	case r.ok:
		return json.Marshal(r.value)
	default:
		return []byte("null"), nil
	}
}
