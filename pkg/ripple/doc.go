// Package ripple is a fine-grained reactivity runtime: signals hold values,
// computeds derive from them lazily, and effects re-run when anything they
// read changes. Dependencies are discovered at runtime by tracking reads, so
// there is nothing to declare and conditional reads re-bind on every run.
//
// # Core Types
//
// Signal[T] is the mutable reactive cell:
//
//	count := NewSignal(0)
//	value := count.Get()  // read (subscribes the current computation)
//	count.Set(5)          // write (notifies subscribers if the value changed)
//	count.Update(func(n int) int { return n + 1 })
//
// Computed[T] is a cached derivation that recomputes only when a dependency
// changed and the value is next read:
//
//	doubled := NewComputed(func() int { return count.Get() * 2 })
//	value := doubled.Get()
//
// CreateEffect runs a side effect now and again after any dependency changes.
// The returned Cleanup, if any, runs before the next run and at disposal:
//
//	CreateEffect(func() Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return nil
//	})
//
// # Scheduling
//
// Writes never run effects inline. A write outside any batch enqueues the
// affected effects and wakes a background flusher, so all writes issued in
// one synchronous stretch collapse into a single flush. Within one flush,
// effects run in the order they became dirty, each at most once per queue
// pass, until the queue reaches a fixed point.
//
// Batch defers the flush to the end of the outermost batch and drains
// synchronously before returning:
//
//	Batch(func() {
//	    first.Set("Ada")
//	    last.Set("Lovelace")
//	})  // dependents ran exactly once by this point
//
// FlushSync drains immediately. Settle blocks until no flush is pending or
// running, which is how tests and shutdown paths join the background
// flusher:
//
//	count.Set(1)
//	_ = Settle(context.Background())
//
// # Scopes
//
// CreateScope bounds the lifetime of everything created inside it. Disposing
// the scope disposes nested scopes, effects, computeds, and signals, and runs
// OnCleanup callbacks in reverse registration order. Nodes created with no
// scope are never disposed automatically.
//
// # Thread Safety
//
// All primitives are safe for concurrent use. Dependency tracking is
// per-goroutine: a computation's reads are only tracked on the goroutine
// running it, so goroutines spawned from an effect body read without
// subscribing.
package ripple
