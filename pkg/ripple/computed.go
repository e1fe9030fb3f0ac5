package ripple

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

// Computed is a lazily derived, memoized value. It recomputes only when a
// dependency changed and the value is next read; if several dependencies
// change before a read, it recomputes once. Computeds compose: reading one
// inside another computed or an effect makes it a dependency there.
//
// Staleness is pushed eagerly but values are pulled lazily. When a
// dependency changes, the computed marks itself stale and propagates the
// mark to its own subscribers without recomputing. On the next read it first
// verifies that a dependency really committed a new version; if none did
// (the change converged to an equal value upstream) the cached value is kept
// and no recompute happens.
type Computed[T any] struct {
	cell cell

	// derive computes the value. It must be pure: writes from inside it
	// panic with a CycleError.
	derive func() T

	// value is the cached result of the last derive.
	value   T
	valueMu sync.RWMutex

	// deps are the cells read during the last derive.
	deps depTracker

	// equal decides whether a recompute changed the value. nil means the
	// default equality.
	equal func(T, T) bool

	// stale is set when a dependency changes and cleared after the next
	// read verifies or recomputes.
	stale atomic.Bool

	// deriveMu serializes recomputation across goroutines.
	deriveMu sync.Mutex

	// derivingBy is the ID of the goroutine currently inside derive, for
	// reentrancy detection. Zero when idle.
	derivingBy atomic.Int64
}

// NewComputed creates a computed with the given derive function. The first
// read computes; nothing runs at construction. When a scope is active on the
// calling goroutine, the computed is owned by it and dies with it.
func NewComputed[T any](derive func() T) *Computed[T] {
	c := &Computed[T]{derive: derive}
	c.cell.id = nextID()
	c.cell.refresh = c.refresh
	c.stale.Store(true)

	if sc := currentScope(); sc != nil {
		sc.adoptNode(c.dispose)
	}
	return c
}

// Get returns the computed's value, recomputing first if a dependency
// changed, and subscribes the current computation.
func (c *Computed[T]) Get() T {
	c.refresh()
	track(&c.cell)

	c.valueMu.RLock()
	defer c.valueMu.RUnlock()
	return c.value
}

// Peek returns the computed's value without subscribing. It still
// recomputes if a dependency changed.
func (c *Computed[T]) Peek() T {
	c.refresh()

	c.valueMu.RLock()
	defer c.valueMu.RUnlock()
	return c.value
}

// WithEquals configures a custom equality function and returns the
// computed. Equality controls the short-circuit: a recompute that produces
// an equal value does not advance the version, so downstream computations
// skip their own re-runs.
func (c *Computed[T]) WithEquals(fn func(T, T) bool) *Computed[T] {
	c.equal = fn
	return c
}

// WithName labels the computed for diagnostics and returns it.
func (c *Computed[T]) WithName(name string) *Computed[T] {
	c.cell.name = name
	return c
}

// ID returns the computed's unique identifier.
func (c *Computed[T]) ID() uint64 {
	return c.cell.id
}

// Name returns the diagnostic name set with WithName, or "".
func (c *Computed[T]) Name() string {
	return c.cell.name
}

// Version returns the number of derives that committed a changed value.
func (c *Computed[T]) Version() uint64 {
	return c.cell.version.Load()
}

// markStale implements observer. Idempotent per dirty wave: only the first
// mark propagates, so diamond graphs do not multiply notifications.
func (c *Computed[T]) markStale() {
	if c.cell.disposed.Load() {
		return
	}
	if c.stale.CompareAndSwap(false, true) {
		c.cell.notifyObservers()
	}
}

// observerID implements observer.
func (c *Computed[T]) observerID() uint64 {
	return c.cell.id
}

// recordDep implements observer.
func (c *Computed[T]) recordDep(dep *cell, version uint64) {
	c.deps.record(dep, version)
}

// refresh brings the cached value up to date. It recomputes only when the
// computed has never derived or when a dependency committed a new version
// since the last derive; a stale mark alone is not enough.
func (c *Computed[T]) refresh() {
	if c.cell.disposed.Load() {
		return
	}
	if !c.stale.Load() {
		return
	}
	if c.cell.version.Load() != 0 && !c.deps.changed() {
		// Upstream changes converged to equal values; keep the cache.
		c.stale.Store(false)
		return
	}
	c.rederive()
}

// rederive runs the derive function with tracking and commits the result.
func (c *Computed[T]) rederive() {
	gid := goid.Get()
	if c.derivingBy.Load() == gid {
		panic(&CycleError{NodeID: c.cell.id, NodeName: c.cell.name, Reason: ErrCycleDetected})
	}

	c.deriveMu.Lock()
	defer c.deriveMu.Unlock()

	// Another goroutine may have recomputed while we waited for the lock.
	if !c.stale.Load() && c.cell.version.Load() != 0 {
		return
	}

	c.derivingBy.Store(gid)
	defer c.derivingBy.Store(0)

	// Clear-then-record: drop the previous dependency set so conditionally
	// unused cells stop notifying this computed.
	c.deps.detach(c)

	tc := ensureContext()
	prev := tc.observer
	tc.observer = c
	tc.deriveDepth++
	defer func() {
		tc.deriveDepth--
		tc.observer = prev
	}()

	start := time.Now()
	next := c.derive()

	first := c.cell.version.Load() == 0
	c.valueMu.Lock()
	changed := first || !c.equals(c.value, next)
	c.value = next
	c.valueMu.Unlock()

	c.stale.Store(false)
	if changed {
		c.cell.version.Add(1)
	}

	if in := instr(); in != nil {
		in.ComputedRecomputed(c.cell.id, c.cell.name, changed, time.Since(start))
	}
}

// dispose detaches the computed from its dependencies and marks it dead.
// Reads keep returning the cached value but never recompute again.
func (c *Computed[T]) dispose() {
	c.cell.dispose()
	c.deps.detach(c)
}

func (c *Computed[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}
