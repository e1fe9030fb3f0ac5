package ripple

import (
	"sync"
	"testing"
	"time"
)

// recordingInstr counts instrumentation callbacks.
type recordingInstr struct {
	mu       sync.Mutex
	writes   int
	derives  int
	runs     int
	skips    int
	flushes  int
	ends     int
	disposes int
}

type instrCounts struct {
	writes, derives, runs, skips, flushes, ends, disposes int
}

func (r *recordingInstr) counts() instrCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return instrCounts{r.writes, r.derives, r.runs, r.skips, r.flushes, r.ends, r.disposes}
}

func (r *recordingInstr) SignalWrite(id uint64, name string) {
	r.mu.Lock()
	r.writes++
	r.mu.Unlock()
}

func (r *recordingInstr) ComputedRecomputed(id uint64, name string, changed bool, d time.Duration) {
	r.mu.Lock()
	r.derives++
	r.mu.Unlock()
}

func (r *recordingInstr) EffectRan(id uint64, name string, d time.Duration) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
}

func (r *recordingInstr) EffectSkipped(id uint64, name string) {
	r.mu.Lock()
	r.skips++
	r.mu.Unlock()
}

func (r *recordingInstr) FlushStart(queued int) {
	r.mu.Lock()
	r.flushes++
	r.mu.Unlock()
}

func (r *recordingInstr) FlushEnd(runs, skipped int, d time.Duration) {
	r.mu.Lock()
	r.ends++
	r.mu.Unlock()
}

func (r *recordingInstr) ScopeDisposed(id uint64) {
	r.mu.Lock()
	r.disposes++
	r.mu.Unlock()
}

func TestInstrumentationEvents(t *testing.T) {
	rec := &recordingInstr{}
	SetInstrumentation(rec)
	t.Cleanup(func() { SetInstrumentation(nil) })

	count := NewSignal(0, Named("count"))
	double := NewComputed(func() int { return count.Get() * 2 })
	e := CreateEffect(func() Cleanup {
		_ = double.Get()
		return nil
	})
	defer e.Dispose()

	count.Set(1)
	FlushSync()

	c := rec.counts()
	if c.writes != 1 {
		t.Errorf("writes = %d, want 1", c.writes)
	}
	if c.derives != 2 {
		t.Errorf("derives = %d, want 2 (initial plus one rederive)", c.derives)
	}
	if c.runs != 2 {
		t.Errorf("runs = %d, want 2 (initial plus one rerun)", c.runs)
	}
	if c.flushes != 1 || c.ends != 1 {
		t.Errorf("flushes = %d ends = %d, want 1 and 1", c.flushes, c.ends)
	}

	// An equal write is gated before instrumentation sees it.
	count.Set(1)
	FlushSync()
	if got := rec.counts().writes; got != 1 {
		t.Errorf("writes after equal write = %d, want 1", got)
	}
}

func TestInstrumentationSkipAndDispose(t *testing.T) {
	rec := &recordingInstr{}
	SetInstrumentation(rec)
	t.Cleanup(func() { SetInstrumentation(nil) })

	sc := CreateScope(func(dispose func()) {
		n := NewSignal(1)
		parity := NewComputed(func() int { return n.Get() % 2 })
		CreateEffect(func() Cleanup {
			_ = parity.Get()
			return nil
		})

		// 1 -> 3 keeps parity at 1, so the queued effect verifies clean
		// and is skipped.
		n.Set(3)
		FlushSync()
	})
	sc.Dispose()

	c := rec.counts()
	if c.skips != 1 {
		t.Errorf("skips = %d, want 1", c.skips)
	}
	if c.disposes != 1 {
		t.Errorf("disposes = %d, want 1", c.disposes)
	}
}

func TestCombineInstrumentation(t *testing.T) {
	a := &recordingInstr{}
	b := &recordingInstr{}
	combined := CombineInstrumentation(a, b)

	combined.SignalWrite(1, "")
	combined.ComputedRecomputed(2, "", true, time.Microsecond)
	combined.EffectRan(3, "", time.Microsecond)
	combined.EffectSkipped(4, "")
	combined.FlushStart(5)
	combined.FlushEnd(4, 1, time.Millisecond)
	combined.ScopeDisposed(6)

	want := instrCounts{writes: 1, derives: 1, runs: 1, skips: 1, flushes: 1, ends: 1, disposes: 1}
	if got := a.counts(); got != want {
		t.Errorf("first sink counts = %+v, want %+v", got, want)
	}
	if got := b.counts(); got != want {
		t.Errorf("second sink counts = %+v, want %+v", got, want)
	}
}
