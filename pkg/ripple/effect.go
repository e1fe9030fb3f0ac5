package ripple

import (
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

// Effect is a reactive side effect. It runs once synchronously at creation
// to establish its dependencies, then re-runs after any of them change. An
// effect body may return a Cleanup that runs before the next re-run and at
// disposal.
type Effect struct {
	id   uint64
	name string

	// fn is the effect body.
	fn func() Cleanup

	// cleanup is the Cleanup returned by the last run.
	cleanup Cleanup

	// deps are the cells read during the last run.
	deps depTracker

	// scope owns this effect; nil for effects created outside any scope.
	scope *Scope

	// pending is set while the effect sits in the scheduler's queue.
	pending atomic.Bool

	// disposed is set once, by Dispose or the owning scope.
	disposed atomic.Bool

	// runningBy is the ID of the goroutine currently inside run, so a
	// disposal from within the effect's own body can defer its teardown.
	runningBy atomic.Int64
}

// EffectOption configures an effect at construction time.
type EffectOption interface {
	applyEffect(e *Effect)
}

type effectOptionFunc func(*Effect)

func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// EffectName labels the effect for diagnostics: cycle errors and
// instrumentation events carry the name.
func EffectName(name string) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.name = name
	})
}

// CreateEffect creates an effect and runs it immediately. The body re-runs
// whenever a signal or computed it read changes. When a scope is active on
// the calling goroutine, the effect is owned by it and disposed with it.
//
// Example:
//
//	CreateEffect(func() Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return func() { fmt.Println("cleanup") }
//	})
func CreateEffect(fn func() Cleanup, opts ...EffectOption) *Effect {
	e := &Effect{
		id: nextID(),
		fn: fn,
	}
	for _, opt := range opts {
		opt.applyEffect(e)
	}

	if sc := currentScope(); sc != nil {
		e.scope = sc
		sc.adoptEffect(e)
	}

	e.run()
	return e
}

// ID returns the effect's unique identifier.
func (e *Effect) ID() uint64 {
	return e.id
}

// Name returns the diagnostic name set with EffectName, or "".
func (e *Effect) Name() string {
	return e.name
}

// markStale implements observer: schedule a re-run unless one is already
// queued. Inside a batch the effect is parked on the goroutine's batch
// list instead, so the background flusher cannot run it against
// half-applied writes.
func (e *Effect) markStale() {
	if e.disposed.Load() {
		return
	}
	if e.pending.CompareAndSwap(false, true) {
		if tc := loadContext(); tc != nil && tc.batchDepth > 0 {
			tc.batched = append(tc.batched, e)
			return
		}
		defaultScheduler.enqueue(e)
	}
}

// observerID implements observer.
func (e *Effect) observerID() uint64 {
	return e.id
}

// recordDep implements observer.
func (e *Effect) recordDep(dep *cell, version uint64) {
	e.deps.record(dep, version)
}

// run executes the effect body: previous cleanup first, then clear-then-
// record dependency tracking around the body, then capture the next
// cleanup.
func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	e.runningBy.Store(goid.Get())
	e.pending.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.deps.detach(e)

	tc := ensureContext()
	prev := tc.observer
	tc.observer = e

	defer func() {
		tc.observer = prev
		e.runningBy.Store(0)
		if e.disposed.Load() {
			// Disposed from inside its own body: finish the teardown the
			// deferred Dispose left to us.
			e.finalize()
		}
	}()

	start := time.Now()
	e.cleanup = e.fn()

	if in := instr(); in != nil {
		in.EffectRan(e.id, e.name, time.Since(start))
	}
}

// verify reports whether a dependency really committed a new version since
// the last run. Derived dependencies are refreshed first, so an upstream
// change that converged to an equal value clears the way for a skip.
func (e *Effect) verify() bool {
	return e.deps.changed()
}

// Dispose runs the final cleanup and removes the effect from all subscriber
// sets. Idempotent. Safe to call from inside the effect's own body, in
// which case the teardown completes when the body returns.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}
	if e.runningBy.Load() != 0 {
		return
	}
	e.finalize()
}

func (e *Effect) finalize() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	e.deps.detach(e)
}

// IsDisposed reports whether the effect has been disposed.
func (e *Effect) IsDisposed() bool {
	return e.disposed.Load()
}

// OnMount runs fn exactly once, untracked, inside the current scope. It is
// shorthand for an effect with no dependencies.
func OnMount(fn func()) {
	CreateEffect(func() Cleanup {
		Untrack(fn)
		return nil
	})
}

// OnUnmount registers fn to run when the current scope is disposed.
func OnUnmount(fn func()) {
	if sc := currentScope(); sc != nil {
		sc.OnCleanup(fn)
	}
}

// OnUpdate creates an effect that skips its callback on the first run. The
// deps function establishes the dependency set; callback runs only on
// subsequent changes.
//
// Example:
//
//	OnUpdate(
//	    func() { _ = count.Get() },
//	    func() { fmt.Println("count changed") },
//	)
func OnUpdate(deps func(), callback func()) *Effect {
	first := true
	return CreateEffect(func() Cleanup {
		deps()
		if first {
			first = false
			return nil
		}
		callback()
		return nil
	})
}
