package ripple

// Batch groups writes so their effects run once, together. While the batch
// is open, writes collect dirty effects without flushing; when the
// outermost batch exits, the queue drains synchronously, so code right
// after the batch observes post-effect state.
//
// Batches nest: only the outermost exit flushes.
//
// Example:
//
//	Batch(func() {
//	    first.Set("Ada")
//	    last.Set("Lovelace")
//	})
//	// effects depending on either signal ran exactly once
func Batch(fn func()) {
	tc := ensureContext()
	tc.batchDepth++

	defer func() {
		tc.batchDepth--
		if tc.batchDepth == 0 {
			if len(tc.batched) > 0 {
				batched := tc.batched
				tc.batched = nil
				defaultScheduler.enqueueAll(batched)
			}
			defaultScheduler.drain()
		}
	}()

	fn()
}

// BatchValue runs fn inside a batch and returns its result.
func BatchValue[T any](fn func() T) T {
	var v T
	Batch(func() {
		v = fn()
	})
	return v
}

// Untrack runs fn with dependency recording suppressed: reads inside fn do
// not subscribe the enclosing computation. Writes and batching are not
// affected. Reentrant; nesting extends the same suppressed region.
//
// For a single signal read, Peek is clearer.
func Untrack(fn func()) {
	tc := ensureContext()
	tc.untrackDepth++
	defer func() {
		tc.untrackDepth--
	}()

	fn()
}

// UntrackValue runs fn untracked and returns its result.
func UntrackValue[T any](fn func() T) T {
	var v T
	Untrack(func() {
		v = fn()
	})
	return v
}
