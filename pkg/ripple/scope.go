package ripple

import (
	"sync"
	"sync/atomic"
)

// Scope is an ownership boundary for reactive nodes. Signals, computeds,
// effects, and child scopes created while a scope is current belong to it;
// disposing the scope tears all of them down exactly once.
//
// Scopes form a tree mirroring the structure of the code that created them.
type Scope struct {
	id     uint64
	parent *Scope

	// children are nested scopes, disposed before this scope's own nodes.
	children   []*Scope
	childrenMu sync.Mutex

	// effects owned by this scope.
	effects   []*Effect
	effectsMu sync.Mutex

	// nodes are disposers for owned signals and computeds.
	nodes   []func()
	nodesMu sync.Mutex

	// cleanups registered via OnCleanup, run in reverse order at disposal.
	cleanups   []func()
	cleanupsMu sync.Mutex

	// catchers receive errors that escape effects during an asynchronous
	// flush. See OnError.
	catchers   []func(error)
	catchersMu sync.Mutex

	disposed atomic.Bool
}

// newScope creates a scope under parent; nil parent makes a root.
func newScope(parent *Scope) *Scope {
	sc := &Scope{
		id:     nextID(),
		parent: parent,
	}
	if parent != nil {
		parent.addChild(sc)
	}
	return sc
}

// CreateScope runs fn with a fresh scope current on this goroutine and
// returns the scope. fn receives the scope's dispose function, which it may
// store or call, even from inside fn.
//
// Everything reactive created inside fn belongs to the scope. Nodes created
// with no scope active are never disposed automatically.
func CreateScope(fn func(dispose func())) *Scope {
	_, sc := RunScope(func(dispose func()) struct{} {
		fn(dispose)
		return struct{}{}
	})
	return sc
}

// RunScope is CreateScope for code that produces a value: it returns fn's
// result along with the scope.
func RunScope[T any](fn func(dispose func()) T) (T, *Scope) {
	sc := newScope(currentScope())

	tc := ensureContext()
	prev := tc.scope
	tc.scope = sc
	defer func() {
		tc.scope = prev
	}()

	return fn(sc.Dispose), sc
}

// Unscoped runs fn with no active scope and returns its result. Nodes
// created inside belong to no scope and live until explicitly disposed.
// The keyed registry builds shared cells this way so they do not die with
// whatever scope the requesting component happens to be in.
func Unscoped[T any](fn func() T) T {
	tc := ensureContext()
	prev := tc.scope
	tc.scope = nil
	defer func() {
		tc.scope = prev
	}()

	return fn()
}

// ID returns the scope's unique identifier.
func (sc *Scope) ID() uint64 {
	return sc.id
}

// Parent returns the enclosing scope, or nil for a root.
func (sc *Scope) Parent() *Scope {
	return sc.parent
}

// IsDisposed reports whether the scope has been disposed.
func (sc *Scope) IsDisposed() bool {
	return sc.disposed.Load()
}

func (sc *Scope) addChild(child *Scope) {
	sc.childrenMu.Lock()
	defer sc.childrenMu.Unlock()
	sc.children = append(sc.children, child)
}

func (sc *Scope) removeChild(child *Scope) {
	sc.childrenMu.Lock()
	defer sc.childrenMu.Unlock()
	for i, c := range sc.children {
		if c == child {
			sc.children = append(sc.children[:i], sc.children[i+1:]...)
			return
		}
	}
}

// adoptEffect registers an effect for disposal with this scope.
func (sc *Scope) adoptEffect(e *Effect) {
	if sc.disposed.Load() {
		return
	}
	sc.effectsMu.Lock()
	defer sc.effectsMu.Unlock()
	sc.effects = append(sc.effects, e)
}

// adoptNode registers a signal or computed disposer with this scope.
func (sc *Scope) adoptNode(dispose func()) {
	if sc.disposed.Load() {
		return
	}
	sc.nodesMu.Lock()
	defer sc.nodesMu.Unlock()
	sc.nodes = append(sc.nodes, dispose)
}

// OnCleanup registers fn to run when the scope is disposed. Cleanups run in
// reverse registration order, after owned effects and nodes are gone. On an
// already-disposed scope, fn runs immediately.
func (sc *Scope) OnCleanup(fn func()) {
	if sc.disposed.Load() {
		fn()
		return
	}
	sc.cleanupsMu.Lock()
	defer sc.cleanupsMu.Unlock()
	sc.cleanups = append(sc.cleanups, fn)
}

// OnError registers a handler for errors that escape this scope's effects
// during an asynchronous flush. The nearest scope up the tree with handlers
// wins; with no handler anywhere, the flusher goroutine re-panics. Errors
// raised during synchronous drains (Batch exit, FlushSync) propagate to the
// caller instead and never reach these handlers.
func (sc *Scope) OnError(handler func(error)) {
	if sc.disposed.Load() {
		return
	}
	sc.catchersMu.Lock()
	defer sc.catchersMu.Unlock()
	sc.catchers = append(sc.catchers, handler)
}

// deliverError walks up from sc looking for error handlers. It returns true
// once a scope's handlers consumed the error.
func (sc *Scope) deliverError(err error) bool {
	for s := sc; s != nil; s = s.parent {
		s.catchersMu.Lock()
		handlers := make([]func(error), len(s.catchers))
		copy(handlers, s.catchers)
		s.catchersMu.Unlock()

		if len(handlers) > 0 {
			for _, h := range handlers {
				h(err)
			}
			return true
		}
	}
	return false
}

// Dispose tears down the scope: child scopes first (last created first),
// then owned effects, then owned signals and computeds, then cleanup
// callbacks in reverse registration order. Idempotent; calling it again is
// a no-op. Signals owned by the scope keep serving reads of their last
// value, but writes to them are dropped.
func (sc *Scope) Dispose() {
	if sc.disposed.Swap(true) {
		return
	}

	if sc.parent != nil {
		sc.parent.removeChild(sc)
	}

	sc.childrenMu.Lock()
	children := make([]*Scope, len(sc.children))
	copy(children, sc.children)
	sc.children = nil
	sc.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	sc.effectsMu.Lock()
	effects := sc.effects
	sc.effects = nil
	sc.effectsMu.Unlock()

	for _, e := range effects {
		e.Dispose()
	}

	sc.nodesMu.Lock()
	nodes := sc.nodes
	sc.nodes = nil
	sc.nodesMu.Unlock()

	for i := len(nodes) - 1; i >= 0; i-- {
		nodes[i]()
	}

	sc.cleanupsMu.Lock()
	cleanups := sc.cleanups
	sc.cleanups = nil
	sc.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	sc.catchersMu.Lock()
	sc.catchers = nil
	sc.catchersMu.Unlock()

	if in := instr(); in != nil {
		in.ScopeDisposed(sc.id)
	}
}

// OnCleanup registers fn with the scope current on this goroutine. Without
// an active scope, fn will never run.
func OnCleanup(fn func()) {
	if sc := currentScope(); sc != nil {
		sc.OnCleanup(fn)
	}
}

// OnError registers an error handler with the scope current on this
// goroutine. Without an active scope it does nothing.
func OnError(handler func(error)) {
	if sc := currentScope(); sc != nil {
		sc.OnError(handler)
	}
}
