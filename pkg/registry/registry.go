package registry

import (
	"fmt"
	"sync"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

// disposable matches cells that own background work, like resources with
// in-flight fetches or a source-watching effect.
type disposable interface {
	Dispose()
}

// Registry maps structural keys to shared reactive cells. Entries live
// until they are deleted or the registry is reset; they are never bound to
// a scope. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewRegistry creates an empty registry. Most code uses the package-level
// functions and Default instead; separate instances are for tests and for
// embedding the runtime more than once in a process.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]any)}
}

// GetOrCreate returns the cell stored under key, invoking factory to build
// it if the key has no entry. The first caller for a key decides its cell;
// later callers get that cell back and their factory is ignored.
//
// The factory runs at most once per live key, with no active scope, so the
// cell belongs to the registry rather than to whatever scope the caller is
// in. It runs under the registry's lock and must not call back into the
// same Registry.
func (r *Registry) GetOrCreate(key Key, factory func() any) any {
	if key.IsZero() {
		panic(fmt.Errorf("%w: zero key", ErrInvalidKey))
	}

	r.mu.RLock()
	v, ok := r.entries[key.canon]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.entries[key.canon]; ok {
		return v
	}
	v = ripple.Unscoped(factory)
	r.entries[key.canon] = v
	return v
}

// Lookup returns the cell stored under key without creating one.
func (r *Registry) Lookup(key Key) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key.canon]
	return v, ok
}

// Delete removes the entry under key and reports whether one existed. A
// removed cell that implements Dispose is disposed, stopping any background
// work it owns. A later GetOrCreate with an equal key starts fresh, with no
// memory of the prior value.
func (r *Registry) Delete(key Key) bool {
	r.mu.Lock()
	v, ok := r.entries[key.canon]
	if ok {
		delete(r.entries, key.canon)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if d, ok := v.(disposable); ok {
		d.Dispose()
	}
	return true
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Range calls fn for each entry until fn returns false. Iteration order is
// unspecified. It walks a snapshot, so fn may call back into the registry,
// including Delete.
func (r *Registry) Range(fn func(key Key, cell any) bool) {
	r.mu.RLock()
	snapshot := make(map[string]any, len(r.entries))
	for k, v := range r.entries {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(Key{canon: k}, v) {
			return
		}
	}
}

// Reset removes every entry, disposing those that implement Dispose. Tests
// that touch the default registry call this between cases.
func (r *Registry) Reset() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]any)
	r.mu.Unlock()

	for _, v := range entries {
		if d, ok := v.(disposable); ok {
			d.Dispose()
		}
	}
}

// Default is the process-wide registry behind the package-level functions.
// Its lifetime is the process; only Delete and Reset remove entries.
var Default = NewRegistry()

// GetOrCreate calls GetOrCreate on the default registry.
func GetOrCreate(key Key, factory func() any) any {
	return Default.GetOrCreate(key, factory)
}

// Lookup calls Lookup on the default registry.
func Lookup(key Key) (any, bool) {
	return Default.Lookup(key)
}

// Delete calls Delete on the default registry.
func Delete(key Key) bool {
	return Default.Delete(key)
}

// Len calls Len on the default registry.
func Len() int {
	return Default.Len()
}

// Range calls Range on the default registry.
func Range(fn func(key Key, cell any) bool) {
	Default.Range(fn)
}

// Reset calls Reset on the default registry.
func Reset() {
	Default.Reset()
}
