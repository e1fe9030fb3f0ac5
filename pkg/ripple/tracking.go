package ripple

import (
	"sync"

	"github.com/petermattis/goid"
)

// trackingContext holds the reactive state for a single goroutine: which
// computation is currently recording reads, which scope adopts new nodes,
// and the reentrancy depths for batching, untracking, and derives.
type trackingContext struct {
	// observer is the computation currently recording dependencies.
	// nil means reads are plain and create no subscriptions.
	observer observer

	// scope adopts signals, computeds, effects, and child scopes created
	// on this goroutine.
	scope *Scope

	// batchDepth counts nested Batch calls. While > 0, dirtied effects
	// collect in batched; the outermost batch exit splices them into the
	// scheduler and drains.
	batchDepth int

	// batched holds effects dirtied inside the open batch. Keeping them
	// out of the scheduler until the batch closes stops the background
	// flusher from running them against half-applied writes.
	batched []*Effect

	// untrackDepth counts nested Untrack calls. While > 0, reads do not
	// record dependencies.
	untrackDepth int

	// deriveDepth counts computed derives running on this goroutine.
	// A signal write while > 0 is a fatal cycle.
	deriveDepth int
}

// trackingContexts maps goroutine IDs to their contexts.
var trackingContexts sync.Map

// loadContext returns the current goroutine's context, or nil if this
// goroutine never entered a tracked region. Read paths use it so that
// goroutines which only read signals never allocate a context.
func loadContext() *trackingContext {
	if tc, ok := trackingContexts.Load(goid.Get()); ok {
		return tc.(*trackingContext)
	}
	return nil
}

// ensureContext returns the current goroutine's context, creating it on
// first use. Contexts are small and are reused for the goroutine's lifetime.
func ensureContext() *trackingContext {
	gid := goid.Get()
	if tc, ok := trackingContexts.Load(gid); ok {
		return tc.(*trackingContext)
	}
	tc := &trackingContext{}
	trackingContexts.Store(gid, tc)
	return tc
}

// currentObserver returns the computation recording reads on this goroutine,
// or nil when reads are untracked.
func currentObserver() observer {
	tc := loadContext()
	if tc == nil || tc.untrackDepth > 0 {
		return nil
	}
	return tc.observer
}

// currentScope returns the scope adopting new nodes on this goroutine, or
// nil when none is active.
func currentScope() *Scope {
	tc := loadContext()
	if tc == nil {
		return nil
	}
	return tc.scope
}

// track registers c as a dependency of the computation currently recording
// reads, and subscribes that computation to c. No-op for plain reads,
// untracked regions, and disposed cells.
func track(c *cell) {
	obs := currentObserver()
	if obs == nil {
		return
	}
	if c.disposed.Load() {
		return
	}
	c.subscribe(obs)
	obs.recordDep(c, c.version.Load())
}

// inDerive reports whether a computed derive is running on this goroutine.
func inDerive() bool {
	tc := loadContext()
	return tc != nil && tc.deriveDepth > 0
}

// inBatch reports whether a Batch is open on this goroutine.
func inBatch() bool {
	tc := loadContext()
	return tc != nil && tc.batchDepth > 0
}
