package ripple

import (
	"encoding/json"
	"reflect"
	"sync"
)

// Signal is a reactive value container. Reading a Signal during a tracked
// computation (a computed derive or an effect body) subscribes that
// computation to the signal, so it re-runs when the value changes.
type Signal[T any] struct {
	cell cell

	// value is the current signal value.
	value T

	// mu protects the value.
	mu sync.RWMutex

	// equal decides whether a write changed the value. nil means the
	// default equality.
	equal func(T, T) bool

	// transient excludes the signal from state snapshots.
	transient bool
}

// NewSignal creates a signal with the given initial value. When a scope is
// active on the calling goroutine, the signal is owned by it and dies with
// it.
func NewSignal[T any](initial T, opts ...SignalOption) *Signal[T] {
	var cfg signalConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Signal[T]{value: initial, transient: cfg.transient}
	s.cell.id = nextID()
	s.cell.name = cfg.name
	// A signal's initial value counts as its first committed version, so
	// observers recorded against it verify cleanly.
	s.cell.version.Store(1)

	if sc := currentScope(); sc != nil {
		sc.adoptNode(s.cell.dispose)
	}
	return s
}

// Get returns the current value and subscribes the current computation.
func (s *Signal[T]) Get() T {
	track(&s.cell)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set writes a new value. Subscribers are notified only if the value is not
// equal to the current one under the signal's equality function; an equal
// write is a complete no-op. Writes to a signal whose scope was disposed are
// dropped.
func (s *Signal[T]) Set(value T) {
	s.write(func(T) T { return value })
}

// Update applies fn to the current value synchronously and writes the
// result, with the same equality gating as Set.
func (s *Signal[T]) Update(fn func(T) T) {
	s.write(fn)
}

func (s *Signal[T]) write(fn func(T) T) {
	if s.cell.disposed.Load() {
		return
	}
	if inDerive() {
		panic(&CycleError{NodeID: s.cell.id, NodeName: s.cell.name, Reason: ErrWriteInDerive})
	}

	s.mu.Lock()
	next := fn(s.value)
	changed := !s.equals(s.value, next)
	if changed {
		s.value = next
		s.cell.version.Add(1)
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	if in := instr(); in != nil {
		in.SignalWrite(s.cell.id, s.cell.name)
	}
	s.cell.notifyObservers()
}

// WithEquals configures a custom equality function and returns the signal.
// Useful where reflect.DeepEqual is too expensive or has wrong semantics.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the signal's unique identifier.
func (s *Signal[T]) ID() uint64 {
	return s.cell.id
}

// Name returns the diagnostic name set with Named, or "".
func (s *Signal[T]) Name() string {
	return s.cell.name
}

// Version returns the number of committed value changes. Equal writes do
// not advance it.
func (s *Signal[T]) Version() uint64 {
	return s.cell.version.Load()
}

// SnapshotValue serializes the current value for a state snapshot.
func (s *Signal[T]) SnapshotValue() ([]byte, error) {
	return json.Marshal(s.Peek())
}

// RestoreValue deserializes a snapshot payload and writes it through Set,
// so subscribers observe the restored value like any other write.
func (s *Signal[T]) RestoreValue(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Set(v)
	return nil
}

// Persistent reports whether the signal participates in state snapshots.
func (s *Signal[T]) Persistent() bool {
	return !s.transient
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals compares with == for common comparable types and falls back
// to reflect.DeepEqual for everything else.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}
