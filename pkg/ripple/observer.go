package ripple

import "sync"

// observer is a computation that records the cells it reads and reacts when
// one of them commits a new value. Computed and Effect implement it.
type observer interface {
	// markStale notifies the observer that a dependency changed.
	// Computed nodes flag themselves stale and propagate to their own
	// subscribers; effects schedule a re-run.
	markStale()

	// observerID identifies the observer for subscriber deduplication.
	observerID() uint64

	// recordDep registers a cell read together with the version that was
	// observed.
	recordDep(c *cell, version uint64)
}

// Cleanup is a function returned by an effect body to release resources.
// It runs before the effect re-runs and when the effect is disposed.
type Cleanup func()

// depRecord is one dependency edge: the cell and the version seen when the
// edge was recorded.
type depRecord struct {
	cell    *cell
	version uint64
}

// depTracker is the dependency half of an observer: the cells read during
// its last run and the versions observed. Rebuilt from scratch on every run
// so that conditionally unused dependencies stop causing re-runs.
type depTracker struct {
	mu   sync.Mutex
	deps []depRecord
}

// record adds a dependency edge, keeping the first observed version when the
// same cell is read more than once in a run.
func (d *depTracker) record(c *cell, version uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, dep := range d.deps {
		if dep.cell.id == c.id {
			return
		}
	}
	d.deps = append(d.deps, depRecord{cell: c, version: version})
}

// detach unsubscribes o from every recorded cell and clears the set.
func (d *depTracker) detach(o observer) {
	d.mu.Lock()
	deps := d.deps
	d.deps = nil
	d.mu.Unlock()

	for _, dep := range deps {
		dep.cell.unsubscribe(o)
	}
}

// changed refreshes derived dependencies and reports whether any recorded
// cell has committed a new version since it was read. When it returns false
// the observer's last run is still current and can be skipped.
func (d *depTracker) changed() bool {
	d.mu.Lock()
	deps := make([]depRecord, len(d.deps))
	copy(deps, d.deps)
	d.mu.Unlock()

	for _, dep := range deps {
		if dep.cell.refresh != nil {
			dep.cell.refresh()
		}
		if dep.cell.version.Load() != dep.version {
			return true
		}
	}
	return false
}

// size returns the number of recorded dependency edges.
func (d *depTracker) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deps)
}
