package ripple

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

// defaultFlushBudget caps effect runs in one flush. Exceeding it means the
// graph is not converging: effects keep writing signals that re-dirty
// effects in the same flush.
const defaultFlushBudget = 1000

// scheduler coalesces effect re-runs. Writes enqueue dirty effects; a
// background flusher drains them, so a burst of writes in one synchronous
// stretch produces a single flush. Explicit batches and FlushSync drain on
// the calling goroutine instead.
type scheduler struct {
	// mu guards pending, waiters, onSettle, draining, and current.
	mu       sync.Mutex
	pending  []*Effect
	waiters  []chan struct{}
	onSettle []func()
	draining bool
	current  *Effect

	// flushMu serializes drains. flushingBy holds the draining goroutine's
	// ID so nested FlushSync or batch exits inside an effect body become
	// no-ops instead of deadlocks.
	flushMu    sync.Mutex
	flushingBy atomic.Int64

	// scheduled is set while a flusher wake-up is outstanding.
	scheduled atomic.Bool
	wake      chan struct{}
	startOnce sync.Once

	budget atomic.Int64
}

var defaultScheduler = newScheduler()

func newScheduler() *scheduler {
	s := &scheduler{wake: make(chan struct{}, 1)}
	s.budget.Store(defaultFlushBudget)
	return s
}

// enqueue appends an effect to the pending queue and wakes the flusher.
// Each effect appears at most once; the caller holds the effect's pending
// flag. Effects dirtied inside a batch do not come through here; they
// arrive via enqueueAll when the batch closes.
func (s *scheduler) enqueue(e *Effect) {
	s.mu.Lock()
	s.pending = append(s.pending, e)
	s.mu.Unlock()

	s.schedule()
}

// enqueueAll appends a closed batch's effects in the order they were
// dirtied. The caller drains immediately afterward, so no wake-up is
// needed.
func (s *scheduler) enqueueAll(batch []*Effect) {
	s.mu.Lock()
	s.pending = append(s.pending, batch...)
	s.mu.Unlock()
}

// schedule requests an asynchronous flush, coalescing repeated requests
// while one is outstanding.
func (s *scheduler) schedule() {
	s.startOnce.Do(func() {
		go s.loop()
	})
	if s.scheduled.CompareAndSwap(false, true) {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// loop is the background flusher.
func (s *scheduler) loop() {
	for range s.wake {
		s.scheduled.Store(false)
		s.drainAsync()
	}
}

// drain synchronously runs pending effects to a fixed point. Idempotent
// when nothing is pending. Re-entrant calls from the goroutine already
// draining return immediately: the active drain reaches the fixed point on
// its own.
func (s *scheduler) drain() {
	gid := goid.Get()
	if s.flushingBy.Load() == gid {
		return
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.flushingBy.Store(gid)
	defer s.flushingBy.Store(0)

	s.drainLocked()
}

// drainAsync is the flusher-goroutine entry: a panic out of an effect is
// delivered to the effect's scope error handlers. Unhandled panics crash,
// exactly like a panic on any other goroutine.
func (s *scheduler) drainAsync() {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := panicError(r)
		e := s.takeCurrent()
		if e != nil && e.scope != nil && e.scope.deliverError(err) {
			// Handled. The aborted flush left the rest of the queue
			// intact; pick it up in a fresh flush.
			s.mu.Lock()
			more := len(s.pending) > 0
			s.mu.Unlock()
			if more {
				s.schedule()
			}
			return
		}
		panic(r)
	}()

	s.drain()
}

// drainLocked pops and runs pending effects until the queue is empty.
// Effects an in-flight run dirties are appended to the same queue and drain
// in this same pass, so one flush settles to a fixed point. An effect is
// removed from the queue before it runs: re-queueing itself is legal and
// bounded by the flush budget.
func (s *scheduler) drainLocked() {
	s.mu.Lock()
	s.draining = true
	s.current = nil
	active := len(s.pending) > 0
	queued := len(s.pending)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.draining = false
		idle := len(s.pending) == 0
		var ws []chan struct{}
		var cbs []func()
		if idle {
			ws = s.waiters
			s.waiters = nil
			cbs = s.onSettle
			s.onSettle = nil
		}
		s.mu.Unlock()

		for _, w := range ws {
			close(w)
		}
		for _, cb := range cbs {
			cb()
		}
	}()

	in := instr()
	if active && in != nil {
		in.FlushStart(queued)
	}

	start := time.Now()
	runs := 0
	skipped := 0
	budget := int(s.budget.Load())

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			break
		}
		e := s.pending[0]
		s.pending = s.pending[1:]
		s.current = e
		s.mu.Unlock()

		// A scope disposed mid-flush leaves its effects queued; skip them.
		if e.disposed.Load() {
			e.pending.Store(false)
			continue
		}

		e.pending.Store(false)
		if !e.verify() {
			// No dependency actually moved: the change converged to an
			// equal value upstream.
			skipped++
			if in != nil {
				in.EffectSkipped(e.id, e.name)
			}
			continue
		}

		runs++
		if runs > budget {
			panic(&CycleError{NodeID: e.id, NodeName: e.name, Reason: ErrBudgetExceeded})
		}
		e.run()
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if active && in != nil {
		in.FlushEnd(runs, skipped, time.Since(start))
	}
}

// takeCurrent returns and clears the effect the aborted drain was handling.
func (s *scheduler) takeCurrent() *Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.current
	s.current = nil
	return e
}

// settle blocks until the scheduler is quiescent: nothing pending, no drain
// running, no wake-up outstanding.
func (s *scheduler) settle(ctx context.Context) error {
	for {
		s.mu.Lock()
		idle := len(s.pending) == 0 && !s.draining && !s.scheduled.Load()
		var ch chan struct{}
		if !idle {
			ch = make(chan struct{})
			s.waiters = append(s.waiters, ch)
		}
		s.mu.Unlock()

		if idle {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// addSettleCallback runs fn once after the scheduler next reaches
// quiescence, or immediately if it already is quiescent.
func (s *scheduler) addSettleCallback(fn func()) {
	s.mu.Lock()
	idle := len(s.pending) == 0 && !s.draining && !s.scheduled.Load()
	if !idle {
		s.onSettle = append(s.onSettle, fn)
	}
	s.mu.Unlock()

	if idle {
		fn()
	}
}

// pendingCount returns the number of queued effects.
func (s *scheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// FlushSync drains all pending effects on the calling goroutine before
// returning. Idempotent when nothing is pending, and a no-op inside a
// batch: the queued effects run when the outermost batch exits, so a batch
// stays atomic. Panics out of effect bodies propagate to the caller.
func FlushSync() {
	if inBatch() {
		return
	}
	defaultScheduler.drain()
}

// Settle blocks until no flush is pending or running. It is how tests and
// shutdown paths join the background flusher after untamed writes:
//
//	count.Set(1)
//	if err := Settle(ctx); err != nil { ... }
func Settle(ctx context.Context) error {
	return defaultScheduler.settle(ctx)
}

// OnSettle runs fn once after the scheduler next goes quiescent, or
// immediately if it already is. Callbacks run on the goroutine that
// finished the flush.
func OnSettle(fn func()) {
	defaultScheduler.addSettleCallback(fn)
}

// SetFlushBudget caps effect runs per flush. A flush exceeding the budget
// panics with a CycleError carrying ErrBudgetExceeded. Values below 1 are
// ignored. The default is 1000.
func SetFlushBudget(n int) {
	if n < 1 {
		return
	}
	defaultScheduler.budget.Store(int64(n))
}
