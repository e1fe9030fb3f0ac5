package ripple

import (
	"sync"
	"sync/atomic"
)

// cell is the type-erased core shared by Signal and Computed: identity,
// subscriber bookkeeping, and the version counter used for staleness
// verification.
type cell struct {
	id   uint64
	name string

	// version counts committed value changes. Observers record the version
	// they saw; a mismatch at flush time means the dependency really moved.
	// Zero means no value has ever been committed (derived cells only).
	version atomic.Uint64

	// obs are the computations subscribed to this cell.
	obs   []observer
	obsMu sync.RWMutex

	// disposed is set when the owning scope tears down. Writes to a
	// disposed cell are dropped; reads keep returning the last value.
	disposed atomic.Bool

	// refresh brings a derived cell up to date before its version is
	// compared. nil for plain signal cells.
	refresh func()
}

// subscribe adds an observer, deduplicating by observer ID.
func (c *cell) subscribe(o observer) {
	if o == nil {
		return
	}

	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	oid := o.observerID()
	for _, existing := range c.obs {
		if existing.observerID() == oid {
			return
		}
	}
	c.obs = append(c.obs, o)
}

// unsubscribe removes an observer.
func (c *cell) unsubscribe(o observer) {
	if o == nil {
		return
	}

	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	oid := o.observerID()
	for i, existing := range c.obs {
		if existing.observerID() == oid {
			// Order is irrelevant here, swap with the last element.
			c.obs[i] = c.obs[len(c.obs)-1]
			c.obs = c.obs[:len(c.obs)-1]
			return
		}
	}
}

// notifyObservers marks every subscriber stale. The subscriber list is
// copied first so no lock is held while observers react. Staleness marking
// is always synchronous; only effect execution is deferred, by the
// scheduler, when an effect turns staleness into a queued re-run.
func (c *cell) notifyObservers() {
	c.obsMu.RLock()
	obs := make([]observer, len(c.obs))
	copy(obs, c.obs)
	c.obsMu.RUnlock()

	for _, o := range obs {
		o.markStale()
	}
}

// dispose marks the cell dead and releases its subscribers.
func (c *cell) dispose() {
	if c.disposed.Swap(true) {
		return
	}
	c.obsMu.Lock()
	c.obs = nil
	c.obsMu.Unlock()
}

// subscriberCount returns the current number of subscribers.
func (c *cell) subscriberCount() int {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	return len(c.obs)
}
