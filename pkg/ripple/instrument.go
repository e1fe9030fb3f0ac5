package ripple

import (
	"sync/atomic"
	"time"
)

// Instrumentation receives runtime events. Implementations must be safe for
// concurrent use and must return quickly: hot paths invoke these callbacks
// inline. The metrics, tracing, and devtools packages provide
// implementations.
type Instrumentation interface {
	// SignalWrite fires after a write committed a changed value.
	SignalWrite(id uint64, name string)

	// ComputedRecomputed fires after a derive ran. changed reports whether
	// the new value was inequal to the cached one.
	ComputedRecomputed(id uint64, name string, changed bool, d time.Duration)

	// EffectRan fires after an effect body ran, including the initial run
	// at creation.
	EffectRan(id uint64, name string, d time.Duration)

	// EffectSkipped fires when a queued effect was dropped from a flush
	// because no dependency had actually changed.
	EffectSkipped(id uint64, name string)

	// FlushStart fires when a flush begins draining a non-empty queue.
	FlushStart(queued int)

	// FlushEnd fires when that flush reaches its fixed point.
	FlushEnd(runs, skipped int, d time.Duration)

	// ScopeDisposed fires after a scope finished tearing down.
	ScopeDisposed(id uint64)
}

type instrBox struct {
	in Instrumentation
}

var instrumentation atomic.Pointer[instrBox]

// SetInstrumentation installs the process-wide instrumentation sink.
// Passing nil removes it. Replacing a sink mid-flight is safe; in-progress
// operations may still report to the previous one.
func SetInstrumentation(in Instrumentation) {
	if in == nil {
		instrumentation.Store(nil)
		return
	}
	instrumentation.Store(&instrBox{in: in})
}

// instr returns the installed sink, or nil.
func instr() Instrumentation {
	if b := instrumentation.Load(); b != nil {
		return b.in
	}
	return nil
}

// CombineInstrumentation fans events out to several sinks, in order. Use
// it to run metrics and tracing side by side:
//
//	ripple.SetInstrumentation(ripple.CombineInstrumentation(collector, tracer))
func CombineInstrumentation(sinks ...Instrumentation) Instrumentation {
	return multiInstr(sinks)
}

type multiInstr []Instrumentation

func (m multiInstr) SignalWrite(id uint64, name string) {
	for _, in := range m {
		in.SignalWrite(id, name)
	}
}

func (m multiInstr) ComputedRecomputed(id uint64, name string, changed bool, d time.Duration) {
	for _, in := range m {
		in.ComputedRecomputed(id, name, changed, d)
	}
}

func (m multiInstr) EffectRan(id uint64, name string, d time.Duration) {
	for _, in := range m {
		in.EffectRan(id, name, d)
	}
}

func (m multiInstr) EffectSkipped(id uint64, name string) {
	for _, in := range m {
		in.EffectSkipped(id, name)
	}
}

func (m multiInstr) FlushStart(queued int) {
	for _, in := range m {
		in.FlushStart(queued)
	}
}

func (m multiInstr) FlushEnd(runs, skipped int, d time.Duration) {
	for _, in := range m {
		in.FlushEnd(runs, skipped, d)
	}
}

func (m multiInstr) ScopeDisposed(id uint64) {
	for _, in := range m {
		in.ScopeDisposed(id)
	}
}
