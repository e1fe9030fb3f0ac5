// Package ripple provides the public API for the Ripple reactivity runtime.
//
// This is the recommended import for most applications:
//
//	import "github.com/ripple-dev/ripple"
//
// Usage:
//
//	count := ripple.NewSignal(0)
//	double := ripple.NewComputed(func() int { return count.Get() * 2 })
//	ripple.CreateEffect(func() ripple.Cleanup {
//	    fmt.Println("count is", count.Get(), "double is", double.Get())
//	    return nil
//	})
//	count.Set(1) // the effect reruns on the next flush
package ripple

import (
	"github.com/ripple-dev/ripple/pkg/registry"
	coreripple "github.com/ripple-dev/ripple/pkg/ripple"
)

// =============================================================================
// Reactive primitives (re-export from pkg/ripple)
// =============================================================================

// NewSignal creates a reactive signal holding the given initial value.
//
// Example:
//
//	count := ripple.NewSignal(0)
//	count.Set(1)
//	value := count.Get() // 1
func NewSignal[T any](initial T, opts ...SignalOption) *Signal[T] {
	return coreripple.NewSignal(initial, opts...)
}

// NewComputed creates a lazily derived value that tracks its dependencies
// automatically.
//
// Example:
//
//	doubled := ripple.NewComputed(func() int {
//	    return count.Get() * 2
//	})
func NewComputed[T any](derive func() T) *Computed[T] {
	return coreripple.NewComputed(derive)
}

// CreateEffect registers a side effect that reruns when any signal or
// computed it read changes. The body runs once synchronously at creation.
//
// Example:
//
//	ripple.CreateEffect(func() ripple.Cleanup {
//	    fmt.Println("count changed to", count.Get())
//	    return nil
//	})
var CreateEffect = coreripple.CreateEffect

// Batch groups writes so their effects run once, together, when the
// outermost batch exits.
var Batch = coreripple.Batch

// BatchValue runs fn inside a batch and returns its result.
func BatchValue[T any](fn func() T) T {
	return coreripple.BatchValue(fn)
}

// Untrack runs fn with dependency recording suppressed.
var Untrack = coreripple.Untrack

// UntrackValue runs fn untracked and returns its result.
func UntrackValue[T any](fn func() T) T {
	return coreripple.UntrackValue(fn)
}

// Core type aliases
type Signal[T any] = coreripple.Signal[T]
type Computed[T any] = coreripple.Computed[T]
type Effect = coreripple.Effect
type Cleanup = coreripple.Cleanup
type SignalOption = coreripple.SignalOption
type EffectOption = coreripple.EffectOption

// Typed signal conveniences
type IntSignal = coreripple.IntSignal
type BoolSignal = coreripple.BoolSignal
type SliceSignal[E any] = coreripple.SliceSignal[E]

var NewIntSignal = coreripple.NewIntSignal
var NewBoolSignal = coreripple.NewBoolSignal

// NewSliceSignal creates a signal over a slice with element-wise equality.
func NewSliceSignal[E any](initial []E, opts ...SignalOption) *SliceSignal[E] {
	return coreripple.NewSliceSignal(initial, opts...)
}

// Signal options.
var Named = coreripple.Named
var Transient = coreripple.Transient

// Effect options.
var EffectName = coreripple.EffectName

// =============================================================================
// Scopes and lifecycle (re-export from pkg/ripple)
// =============================================================================

// Scope owns the effects, computeds, and cleanups created while it is
// current, and tears them down together on Dispose.
type Scope = coreripple.Scope

// CreateScope runs fn inside a fresh child scope and returns it.
//
// Example:
//
//	scope := ripple.CreateScope(func(dispose func()) {
//	    ripple.CreateEffect(renderHeader)
//	    ripple.CreateEffect(renderBody)
//	})
//	// later, tear both effects down at once:
//	scope.Dispose()
var CreateScope = coreripple.CreateScope

// RunScope runs fn inside a fresh child scope and returns fn's result
// along with the scope.
func RunScope[T any](fn func(dispose func()) T) (T, *Scope) {
	return coreripple.RunScope(fn)
}

// Unscoped runs fn with no current scope, so cells it creates outlive the
// caller's scope.
func Unscoped[T any](fn func() T) T {
	return coreripple.Unscoped(fn)
}

// OnCleanup registers fn to run when the current scope is disposed.
var OnCleanup = coreripple.OnCleanup

// OnError installs an error handler on the current scope. Panics escaping
// asynchronous effect runs are delivered to the nearest handler up the
// scope chain.
var OnError = coreripple.OnError

// OnMount runs fn once, untracked, inside the current scope.
var OnMount = coreripple.OnMount

// OnUnmount registers fn to run when the current scope is disposed.
var OnUnmount = coreripple.OnUnmount

// OnUpdate runs callback whenever a dependency read by deps changes,
// skipping the initial run.
var OnUpdate = coreripple.OnUpdate

// =============================================================================
// Scheduler (re-export from pkg/ripple)
// =============================================================================

// FlushSync drains all pending effects before returning. Calling it inside
// an effect is a no-op.
var FlushSync = coreripple.FlushSync

// Settle blocks until no flush is pending or running, or ctx is done.
var Settle = coreripple.Settle

// OnSettle runs fn once after the current pending work drains, or
// immediately when the scheduler is idle.
var OnSettle = coreripple.OnSettle

// SetFlushBudget caps how many effect runs a single flush may perform
// before it panics with ErrBudgetExceeded. Values below 1 are ignored;
// the default is 1000.
var SetFlushBudget = coreripple.SetFlushBudget

// =============================================================================
// Errors (re-export from pkg/ripple)
// =============================================================================

var ErrCycleDetected = coreripple.ErrCycleDetected
var ErrWriteInDerive = coreripple.ErrWriteInDerive
var ErrBudgetExceeded = coreripple.ErrBudgetExceeded

// CycleError reports the dependency path of a detected cycle.
type CycleError = coreripple.CycleError

// =============================================================================
// Instrumentation (re-export from pkg/ripple)
// =============================================================================

// Instrumentation receives runtime events. The metrics, tracing, and
// devtools packages provide implementations.
type Instrumentation = coreripple.Instrumentation

// SetInstrumentation installs the process-wide instrumentation sink.
var SetInstrumentation = coreripple.SetInstrumentation

// CombineInstrumentation fans events out to several sinks, in order.
var CombineInstrumentation = coreripple.CombineInstrumentation

// =============================================================================
// Shared cells (re-export from pkg/registry)
// =============================================================================

// Key identifies a shared cell in a registry. Build one with StrKey or
// TupleKey; two keys built from equal parts are equal.
type Key = registry.Key

// StrKey builds a Key from a plain string.
var StrKey = registry.Str

// TupleKey builds a structural Key from ordered parts. Parts must be JSON
// primitives: strings, booleans, nil, integers, or floats.
//
// Example:
//
//	ripple.TupleKey("user", 42)
var TupleKey = registry.Tuple

// SharedSignal returns the process-wide signal registered under key,
// creating it with the given initial value on first use. Every caller with
// an equal key gets the same signal; later initial values are ignored.
//
// Example:
//
//	visits := ripple.SharedSignal(ripple.TupleKey("stats", "visits"), 0)
//	visits.Update(func(n int) int { return n + 1 })
func SharedSignal[T any](key Key, initial T, opts ...SignalOption) *Signal[T] {
	return registry.SharedSignal(key, initial, opts...)
}

// SharedResource returns the process-wide resource registered under key,
// creating it with the given fetch function on first use. The first
// caller's fetch function and options win.
func SharedResource[T any](key Key, fetch FetchFunc[T], opts ...ResourceOption) *Resource[T] {
	return registry.SharedResource(key, fetch, opts...)
}
