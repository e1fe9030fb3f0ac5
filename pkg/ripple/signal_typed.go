package ripple

// IntSignal wraps Signal[int] with convenience methods for counters.
type IntSignal struct {
	*Signal[int]
}

// NewIntSignal creates a new IntSignal with the given initial value.
func NewIntSignal(initial int, opts ...SignalOption) *IntSignal {
	return &IntSignal{NewSignal(initial, opts...)}
}

// Inc increments the value by 1.
func (s *IntSignal) Inc() {
	s.Update(func(n int) int { return n + 1 })
}

// Dec decrements the value by 1.
func (s *IntSignal) Dec() {
	s.Update(func(n int) int { return n - 1 })
}

// Add adds the given value.
func (s *IntSignal) Add(n int) {
	s.Update(func(v int) int { return v + n })
}

// BoolSignal wraps Signal[bool] with convenience methods for flags.
type BoolSignal struct {
	*Signal[bool]
}

// NewBoolSignal creates a new BoolSignal with the given initial value.
func NewBoolSignal(initial bool, opts ...SignalOption) *BoolSignal {
	return &BoolSignal{NewSignal(initial, opts...)}
}

// Toggle inverts the value.
func (s *BoolSignal) Toggle() {
	s.Update(func(b bool) bool { return !b })
}

// SetTrue sets the value to true.
func (s *BoolSignal) SetTrue() {
	s.Set(true)
}

// SetFalse sets the value to false.
func (s *BoolSignal) SetFalse() {
	s.Set(false)
}

// SliceSignal wraps Signal[[]E] with convenience methods for lists. Every
// mutation builds a fresh slice so previously read values stay untouched.
type SliceSignal[E any] struct {
	*Signal[[]E]
}

// NewSliceSignal creates a new SliceSignal. A nil initial value becomes an
// empty slice.
func NewSliceSignal[E any](initial []E, opts ...SignalOption) *SliceSignal[E] {
	if initial == nil {
		initial = []E{}
	}
	return &SliceSignal[E]{NewSignal(initial, opts...)}
}

// Append adds an item to the end of the slice.
func (s *SliceSignal[E]) Append(item E) {
	s.Update(func(items []E) []E {
		next := make([]E, len(items), len(items)+1)
		copy(next, items)
		return append(next, item)
	})
}

// RemoveAt removes the item at the given index. Out-of-bounds indexes are
// ignored.
func (s *SliceSignal[E]) RemoveAt(index int) {
	s.Update(func(items []E) []E {
		if index < 0 || index >= len(items) {
			return items
		}
		next := make([]E, 0, len(items)-1)
		next = append(next, items[:index]...)
		return append(next, items[index+1:]...)
	})
}

// SetAt replaces the item at the given index. Out-of-bounds indexes are
// ignored.
func (s *SliceSignal[E]) SetAt(index int, item E) {
	s.Update(func(items []E) []E {
		if index < 0 || index >= len(items) {
			return items
		}
		next := make([]E, len(items))
		copy(next, items)
		next[index] = item
		return next
	})
}

// Filter keeps only items satisfying the predicate.
func (s *SliceSignal[E]) Filter(keep func(E) bool) {
	s.Update(func(items []E) []E {
		next := make([]E, 0, len(items))
		for _, item := range items {
			if keep(item) {
				next = append(next, item)
			}
		}
		return next
	})
}

// Clear removes all items.
func (s *SliceSignal[E]) Clear() {
	s.Set([]E{})
}

// Len returns the current length. This is a tracked read.
func (s *SliceSignal[E]) Len() int {
	return len(s.Get())
}
