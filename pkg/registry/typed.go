package registry

import (
	"errors"
	"fmt"

	"github.com/ripple-dev/ripple/pkg/resource"
	"github.com/ripple-dev/ripple/pkg/ripple"
)

// ErrTypeMismatch is wrapped by the panic raised when a typed accessor
// finds a cell of a different type under its key. Two call sites sharing a
// key must agree on the cell's type; this is a programming error, not a
// runtime condition to handle.
var ErrTypeMismatch = errors.New("registry: key holds a different cell type")

// SignalFor returns the shared signal under key, creating it with the
// given initial value on first use. Every caller with an equal key gets
// the same signal; later initial values are ignored.
func SignalFor[T any](r *Registry, key Key, initial T, opts ...ripple.SignalOption) *ripple.Signal[T] {
	v := r.GetOrCreate(key, func() any {
		return ripple.NewSignal(initial, opts...)
	})
	sig, ok := v.(*ripple.Signal[T])
	if !ok {
		panic(fmt.Errorf("%w: key %s holds %T", ErrTypeMismatch, key, v))
	}
	return sig
}

// ResourceFor returns the shared resource under key, creating it with the
// given fetch function on first use. The first caller's fetch function and
// options win; later ones are ignored.
func ResourceFor[T any](r *Registry, key Key, fetch resource.FetchFunc[T], opts ...resource.Option) *resource.Resource[T] {
	v := r.GetOrCreate(key, func() any {
		return resource.New(fetch, opts...)
	})
	res, ok := v.(*resource.Resource[T])
	if !ok {
		panic(fmt.Errorf("%w: key %s holds %T", ErrTypeMismatch, key, v))
	}
	return res
}

// SharedSignal is SignalFor on the default registry.
//
// Example:
//
//	visits := registry.SharedSignal(registry.Tuple("stats", "visits"), 0)
//	visits.Update(func(n int) int { return n + 1 })
func SharedSignal[T any](key Key, initial T, opts ...ripple.SignalOption) *ripple.Signal[T] {
	return SignalFor(Default, key, initial, opts...)
}

// SharedResource is ResourceFor on the default registry.
func SharedResource[T any](key Key, fetch resource.FetchFunc[T], opts ...resource.Option) *resource.Resource[T] {
	return ResourceFor(Default, key, fetch, opts...)
}
