package ripple

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func TestFlushSyncEmptyQueue(t *testing.T) {
	// Nothing pending: both calls return immediately.
	FlushSync()
	FlushSync()
}

func TestFlushSyncInsideEffectIsNoOp(t *testing.T) {
	count := NewSignal(0)
	runs := 0

	CreateEffect(func() Cleanup {
		runs++
		_ = count.Get()
		FlushSync()
		return nil
	})

	count.Set(1)
	FlushSync()

	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestBatchInsideEffectFlushesInSameDrain(t *testing.T) {
	trigger := NewSignal(0)
	inner := NewSignal(0)
	var seen int

	CreateEffect(func() Cleanup {
		v := trigger.Get()
		if v > 0 {
			Batch(func() {
				inner.Set(v)
			})
		}
		return nil
	})
	CreateEffect(func() Cleanup {
		seen = inner.Get()
		return nil
	})

	trigger.Set(7)
	FlushSync()

	if seen != 7 {
		t.Errorf("expected downstream effect to observe 7, got %d", seen)
	}
}

func TestCascadeRunsToFixedPoint(t *testing.T) {
	a := NewSignal(0)
	b := NewSignal(0)
	c := NewSignal(0)
	var seen int

	CreateEffect(func() Cleanup {
		if v := a.Get(); v != b.Peek() {
			b.Set(v)
		}
		return nil
	})
	CreateEffect(func() Cleanup {
		if v := b.Get(); v != c.Peek() {
			c.Set(v)
		}
		return nil
	})
	CreateEffect(func() Cleanup {
		seen = c.Get()
		return nil
	})

	a.Set(9)
	FlushSync()

	if seen != 9 {
		t.Errorf("expected cascade to settle at 9, got %d", seen)
	}
}

func TestFlushBudgetPanicsOnDivergence(t *testing.T) {
	SetFlushBudget(50)
	defer SetFlushBudget(defaultFlushBudget)

	count := NewSignal(0)
	var e *Effect
	e = CreateEffect(func() Cleanup {
		if v := count.Get(); v > 0 {
			count.Set(v + 1)
		}
		return nil
	}, EffectName("runaway"))

	defer func() {
		e.Dispose()
		r := recover()
		if r == nil {
			t.Fatal("expected panic when the flush never settles")
		}
		cerr, ok := r.(*CycleError)
		if !ok {
			t.Fatalf("expected *CycleError, got %T", r)
		}
		if !errors.Is(cerr, ErrBudgetExceeded) {
			t.Errorf("expected ErrBudgetExceeded, got %v", cerr)
		}
		if cerr.NodeName != "runaway" {
			t.Errorf("expected the diverging effect's name, got %q", cerr.NodeName)
		}
	}()

	Batch(func() {
		count.Set(1)
	})
}

func TestEffectPanicPropagatesFromBatch(t *testing.T) {
	count := NewSignal(0)

	CreateEffect(func() Cleanup {
		if count.Get() > 0 {
			panic("boom")
		}
		return nil
	})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected effect panic to reach the batch caller")
		}
		if r != "boom" {
			t.Errorf("expected original panic value, got %v", r)
		}
	}()

	Batch(func() {
		count.Set(1)
	})
}

func TestAsyncPanicDeliveredToScopeHandler(t *testing.T) {
	count := NewSignal(0)
	caught := make(chan error, 1)

	_, sc := RunScope(func(dispose func()) struct{} {
		OnError(func(err error) {
			caught <- err
		})
		CreateEffect(func() Cleanup {
			if count.Get() > 0 {
				panic("boom")
			}
			return nil
		})
		return struct{}{}
	})
	defer sc.Dispose()

	// No batch and no FlushSync: the background flusher runs the effect and
	// routes the panic to the scope's handler.
	count.Set(1)

	err := <-caught
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected wrapped panic, got %v", err)
	}
}

func TestAsyncPanicKeepsLaterEffectsAlive(t *testing.T) {
	count := NewSignal(0)
	caught := make(chan error, 1)
	var after atomic.Int64

	_, sc := RunScope(func(dispose func()) struct{} {
		OnError(func(err error) {
			caught <- err
		})
		CreateEffect(func() Cleanup {
			if count.Get() > 0 {
				panic("boom")
			}
			return nil
		})
		return struct{}{}
	})
	defer sc.Dispose()

	// Created after the panicking effect, so it sits behind it in the queue.
	e := CreateEffect(func() Cleanup {
		after.Store(int64(count.Get()))
		return nil
	})
	defer e.Dispose()

	count.Set(3)

	<-caught
	if err := Settle(context.Background()); err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if after.Load() != 3 {
		t.Errorf("effect behind the panic should still run, observed %d", after.Load())
	}
}

func TestDisposedEffectSkippedInFlush(t *testing.T) {
	count := NewSignal(0)
	runs := 0

	var sc *Scope
	_, sc = RunScope(func(dispose func()) struct{} {
		CreateEffect(func() Cleanup {
			runs++
			_ = count.Get()
			return nil
		})
		return struct{}{}
	})

	Batch(func() {
		count.Set(1)
		sc.Dispose()
	})

	if runs != 1 {
		t.Errorf("effect disposed before the flush must not run, got %d runs", runs)
	}
}

func TestSettleWaitsForPendingEffects(t *testing.T) {
	count := NewSignal(0)
	var seen atomic.Int64

	e := CreateEffect(func() Cleanup {
		seen.Store(int64(count.Get()))
		return nil
	})
	defer e.Dispose()

	for i := 1; i <= 20; i++ {
		count.Set(i)
	}

	if err := Settle(context.Background()); err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if seen.Load() != 20 {
		t.Errorf("expected effect to have observed 20, got %d", seen.Load())
	}
}

func TestSettleImmediateWhenIdle(t *testing.T) {
	if err := Settle(context.Background()); err != nil {
		t.Fatalf("settle on idle scheduler failed: %v", err)
	}
}

func TestSettleHonorsContext(t *testing.T) {
	release := make(chan struct{})
	gate := NewSignal(0)

	e := CreateEffect(func() Cleanup {
		if gate.Get() > 0 {
			<-release
		}
		return nil
	})
	defer e.Dispose()

	gate.Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Settle(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	close(release)
	if err := Settle(context.Background()); err != nil {
		t.Fatalf("settle after release failed: %v", err)
	}
}

func TestOnSettleRunsAfterFlush(t *testing.T) {
	count := NewSignal(0)
	var seen atomic.Int64
	done := make(chan int64, 1)

	e := CreateEffect(func() Cleanup {
		seen.Store(int64(count.Get()))
		return nil
	})
	defer e.Dispose()

	count.Set(4)
	OnSettle(func() {
		done <- seen.Load()
	})

	if got := <-done; got != 4 {
		t.Errorf("settle callback should run after the flush, observed %d", got)
	}
}

func TestOnSettleImmediateWhenIdle(t *testing.T) {
	if err := Settle(context.Background()); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	called := false
	OnSettle(func() {
		called = true
	})
	if !called {
		t.Error("expected immediate callback on idle scheduler")
	}
}
