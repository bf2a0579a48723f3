package safecall

import (
	"errors"
	"fmt"
)

var (
	// ErrNilRegistry is returned when a wrapper is made without a registry.
	ErrNilRegistry = errors.New("safecall: nil registry")
	// ErrNilCallable is returned when a wrapper is made over a nil function.
	ErrNilCallable = errors.New("safecall: nil callable")
	// ErrDefaultType is returned when the supplied default value cannot
	// serve as the wrapper's return value.
	ErrDefaultType = errors.New("safecall: invalid default value")
)

type Option func(*options)

type options struct {
	name       string
	def        any
	hasDefault bool
}

// WithName sets a diagnostic name reported through observer hooks.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDefault sets the value a cancelled wrapper returns instead of running
// its callable. The value's dynamic type must be assignable to the wrapper's
// return type; construction fails with ErrDefaultType otherwise. Without it,
// a cancelled wrapper returns the zero value of its return type.
func WithDefault(v any) Option {
	return func(o *options) {
		o.def = v
		o.hasDefault = true
	}
}

func build[R any](r *Registry, callable any, void bool, optFns []Option) (*state, error) {
	if r == nil {
		return nil, ErrNilRegistry
	}
	var o options
	for _, fn := range optFns {
		fn(&o)
	}
	var def any
	if o.hasDefault {
		if void {
			return nil, fmt.Errorf("%w: default supplied for a void wrapper", ErrDefaultType)
		}
		dv, ok := o.def.(R)
		if !ok {
			var want R
			return nil, fmt.Errorf("%w: cannot use %T as %T", ErrDefaultType, o.def, want)
		}
		def = dv
	}
	return newState(r, callable, def, o.name), nil
}

// Make returns a safe wrapper over a zero-argument callable. If r is already
// closed the wrapper starts cancelled and never registers.
func Make[R any](r *Registry, fn func() R, opts ...Option) (Func[R], error) {
	if fn == nil {
		return Func[R]{}, ErrNilCallable
	}
	st, err := build[R](r, fn, false, opts)
	if err != nil {
		return Func[R]{}, err
	}
	return Func[R]{handle{st}}, nil
}

// Make1 returns a safe wrapper over a one-argument callable.
func Make1[A, R any](r *Registry, fn func(A) R, opts ...Option) (Func1[A, R], error) {
	if fn == nil {
		return Func1[A, R]{}, ErrNilCallable
	}
	st, err := build[R](r, fn, false, opts)
	if err != nil {
		return Func1[A, R]{}, err
	}
	return Func1[A, R]{handle{st}}, nil
}

// Make2 returns a safe wrapper over a two-argument callable.
func Make2[A, B, R any](r *Registry, fn func(A, B) R, opts ...Option) (Func2[A, B, R], error) {
	if fn == nil {
		return Func2[A, B, R]{}, ErrNilCallable
	}
	st, err := build[R](r, fn, false, opts)
	if err != nil {
		return Func2[A, B, R]{}, err
	}
	return Func2[A, B, R]{handle{st}}, nil
}

// MakeProc returns a safe wrapper over a zero-argument callable with no
// result. WithDefault is rejected for void wrappers.
func MakeProc(r *Registry, fn func(), opts ...Option) (Proc, error) {
	if fn == nil {
		return Proc{}, ErrNilCallable
	}
	st, err := build[struct{}](r, fn, true, opts)
	if err != nil {
		return Proc{}, err
	}
	return Proc{handle{st}}, nil
}

// MakeProc1 returns a safe wrapper over a one-argument callable with no
// result.
func MakeProc1[A any](r *Registry, fn func(A), opts ...Option) (Proc1[A], error) {
	if fn == nil {
		return Proc1[A]{}, ErrNilCallable
	}
	st, err := build[struct{}](r, fn, true, opts)
	if err != nil {
		return Proc1[A]{}, err
	}
	return Proc1[A]{handle{st}}, nil
}

// MakeProc2 returns a safe wrapper over a two-argument callable with no
// result.
func MakeProc2[A, B any](r *Registry, fn func(A, B), opts ...Option) (Proc2[A, B], error) {
	if fn == nil {
		return Proc2[A, B]{}, ErrNilCallable
	}
	st, err := build[struct{}](r, fn, true, opts)
	if err != nil {
		return Proc2[A, B]{}, err
	}
	return Proc2[A, B]{handle{st}}, nil
}

// Must panics if err is non-nil. It is intended for wrappers whose
// construction cannot fail, typically in examples and tests.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
