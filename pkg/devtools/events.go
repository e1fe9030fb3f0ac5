package devtools

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType identifies a runtime event on the websocket stream.
type EventType string

const (
	EventWrite   EventType = "write"
	EventDerive  EventType = "derive"
	EventEffect  EventType = "effect"
	EventSkip    EventType = "skip"
	EventFlush   EventType = "flush"
	EventDispose EventType = "dispose"
)

// Event is sent to inspector clients via websocket.
type Event struct {
	Type    EventType `json:"type"`
	Node    uint64    `json:"node,omitempty"`
	Name    string    `json:"name,omitempty"`
	Changed bool      `json:"changed,omitempty"`
	Queued  int       `json:"queued,omitempty"`
	Runs    int       `json:"runs,omitempty"`
	Skipped int       `json:"skipped,omitempty"`
	Micros  int64     `json:"duration_us,omitempty"`
}

// Snapshot is the JSON body of GET /snapshot: cumulative counters for the
// live graph since the server was created.
type Snapshot struct {
	SignalWrites       uint64    `json:"signal_writes"`
	ComputedRecomputes uint64    `json:"computed_recomputes"`
	EffectRuns         uint64    `json:"effect_runs"`
	EffectSkips        uint64    `json:"effect_skips"`
	Flushes            uint64    `json:"flushes"`
	ScopeDisposals     uint64    `json:"scope_disposals"`
	QueueDepth         int64     `json:"flush_queue_depth"`
	LastFlushMicros    int64     `json:"last_flush_us"`
	Subscribers        int       `json:"event_subscribers"`
	DroppedEvents      uint64    `json:"dropped_events"`
	TakenAt            time.Time `json:"taken_at"`
}

type stats struct {
	writes     atomic.Uint64
	recomputes atomic.Uint64
	effectRuns atomic.Uint64
	effectSkip atomic.Uint64
	flushes    atomic.Uint64
	disposals  atomic.Uint64

	queueDepth atomic.Int64
	lastFlush  atomic.Int64

	// flushQueued carries the depth reported at flush start into the
	// flush event at flush end. Drains are serialized, so one slot is
	// enough.
	mu          sync.Mutex
	flushQueued int
}

// Snapshot returns the current graph counters.
func (s *Server) Snapshot() Snapshot {
	return Snapshot{
		SignalWrites:       s.stats.writes.Load(),
		ComputedRecomputes: s.stats.recomputes.Load(),
		EffectRuns:         s.stats.effectRuns.Load(),
		EffectSkips:        s.stats.effectSkip.Load(),
		Flushes:            s.stats.flushes.Load(),
		ScopeDisposals:     s.stats.disposals.Load(),
		QueueDepth:         s.stats.queueDepth.Load(),
		LastFlushMicros:    s.stats.lastFlush.Load(),
		Subscribers:        s.hub.count(),
		DroppedEvents:      s.hub.dropped.Load(),
		TakenAt:            time.Now(),
	}
}

// SignalWrite implements ripple.Instrumentation.
func (s *Server) SignalWrite(id uint64, name string) {
	s.stats.writes.Add(1)
	s.hub.publish(Event{Type: EventWrite, Node: id, Name: name})
}

// ComputedRecomputed implements ripple.Instrumentation.
func (s *Server) ComputedRecomputed(id uint64, name string, changed bool, d time.Duration) {
	s.stats.recomputes.Add(1)
	s.hub.publish(Event{
		Type:    EventDerive,
		Node:    id,
		Name:    name,
		Changed: changed,
		Micros:  d.Microseconds(),
	})
}

// EffectRan implements ripple.Instrumentation.
func (s *Server) EffectRan(id uint64, name string, d time.Duration) {
	s.stats.effectRuns.Add(1)
	s.hub.publish(Event{Type: EventEffect, Node: id, Name: name, Micros: d.Microseconds()})
}

// EffectSkipped implements ripple.Instrumentation.
func (s *Server) EffectSkipped(id uint64, name string) {
	s.stats.effectSkip.Add(1)
	s.hub.publish(Event{Type: EventSkip, Node: id, Name: name})
}

// FlushStart implements ripple.Instrumentation.
func (s *Server) FlushStart(queued int) {
	s.stats.queueDepth.Store(int64(queued))
	s.stats.mu.Lock()
	s.stats.flushQueued = queued
	s.stats.mu.Unlock()
}

// FlushEnd implements ripple.Instrumentation.
func (s *Server) FlushEnd(runs, skipped int, d time.Duration) {
	s.stats.flushes.Add(1)
	s.stats.lastFlush.Store(d.Microseconds())
	s.stats.queueDepth.Store(0)

	s.stats.mu.Lock()
	queued := s.stats.flushQueued
	s.stats.mu.Unlock()

	s.hub.publish(Event{
		Type:    EventFlush,
		Queued:  queued,
		Runs:    runs,
		Skipped: skipped,
		Micros:  d.Microseconds(),
	})
}

// ScopeDisposed implements ripple.Instrumentation.
func (s *Server) ScopeDisposed(id uint64) {
	s.stats.disposals.Add(1)
	s.hub.publish(Event{Type: EventDispose, Node: id})
}
