package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

// FetchFunc produces a resource's value. It runs on its own goroutine; the
// context is cancelled when the invocation is superseded or the resource is
// disposed.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Resource wraps an asynchronous fetch into a reactive triple of status,
// data, and error signals. Construction starts the first invocation
// immediately. Each invocation carries a token; only the latest token may
// commit, so a slow response can never overwrite a newer one.
//
// While an invocation is in flight the previous data and error stay
// visible: consumers render the old value alongside a loading indicator
// instead of flashing empty.
type Resource[T any] struct {
	status *ripple.Signal[Status]
	data   *ripple.Signal[T]
	errSig *ripple.Signal[error]

	// mu guards the invocation state below. Signal writes that must be
	// atomic against competing invocations happen while it is held; plain
	// writes never drain effects on this goroutine, so holding it is safe.
	mu        sync.Mutex
	fetch     FetchFunc[T]
	token     uint64
	cancel    context.CancelFunc
	fetchedAt time.Time
	disposed  bool
	onSuccess func(T)
	onError   func(error)

	// watch re-invokes the fetch when the keyed source changes; nil for
	// plain resources.
	watch *ripple.Effect

	name      string
	staleTime time.Duration
	retries   int
	backoff   time.Duration
	persist   bool
	lazy      bool
	baseCtx   context.Context
}

// New creates a resource and starts its first fetch before returning,
// unless WithLazy defers it.
//
// Example:
//
//	user := resource.New(func(ctx context.Context) (User, error) {
//	    return api.FetchUser(ctx, 1)
//	}, resource.WithRetry(2, time.Second))
func New[T any](fetch FetchFunc[T], opts ...Option) *Resource[T] {
	r := newResource[T](opts)
	r.fetch = fetch
	if !r.lazy {
		r.launch(nil, true)
	}
	return r
}

// NewKeyed creates a resource whose fetch depends on a reactive key.
// source runs tracked: whenever a signal or computed it read changes, the
// resource re-fetches with the new key. The fetch itself runs on its own
// goroutine and records no dependencies.
//
// Example:
//
//	userID := ripple.NewSignal(1)
//	user := resource.NewKeyed(
//	    func() int { return userID.Get() },
//	    func(ctx context.Context, id int) (User, error) {
//	        return api.FetchUser(ctx, id)
//	    },
//	)
//	userID.Set(2) // supersedes any in-flight fetch for user 1
func NewKeyed[K comparable, T any](source func() K, fetch func(ctx context.Context, key K) (T, error), opts ...Option) *Resource[T] {
	r := newResource[T](opts)

	var effOpts []ripple.EffectOption
	if r.name != "" {
		effOpts = append(effOpts, ripple.EffectName(r.name+".watch"))
	}
	first := true
	r.watch = ripple.CreateEffect(func() ripple.Cleanup {
		key := source()
		bound := func(ctx context.Context) (T, error) {
			return fetch(ctx, key)
		}
		if first && r.lazy {
			// The first run only tracks the source and remembers the
			// key's fetch so Refetch can start it.
			first = false
			r.mu.Lock()
			r.fetch = bound
			r.mu.Unlock()
			return nil
		}
		first = false
		r.launch(bound, true)
		return nil
	}, effOpts...)
	return r
}

func newResource[T any](opts []Option) *Resource[T] {
	o := options{baseCtx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Resource[T]{
		name:      o.name,
		staleTime: o.staleTime,
		retries:   o.retries,
		backoff:   o.backoff,
		persist:   o.persist,
		lazy:      o.lazy,
		baseCtx:   o.baseCtx,
	}
	r.status = ripple.NewSignal(StatusIdle, subSignalOpts(o.name, "status")...)
	var zero T
	r.data = ripple.NewSignal(zero, subSignalOpts(o.name, "data")...)
	r.errSig = ripple.NewSignal[error](nil, subSignalOpts(o.name, "err")...)

	ripple.OnCleanup(r.Dispose)
	return r
}

func subSignalOpts(name, suffix string) []ripple.SignalOption {
	if name == "" {
		return nil
	}
	return []ripple.SignalOption{ripple.Named(name + "." + suffix)}
}

// Data returns the last committed value and tracks the data signal.
func (r *Resource[T]) Data() T {
	return r.data.Get()
}

// Err returns the last committed error and tracks the error signal. It is
// nil after a successful commit.
func (r *Resource[T]) Err() error {
	return r.errSig.Get()
}

// Status returns the resource's state and tracks the status signal only,
// so an effect can watch loading transitions without depending on data.
func (r *Resource[T]) Status() Status {
	return r.status.Get()
}

// Loading reports whether an invocation is in flight. Tracks the status
// signal only.
func (r *Resource[T]) Loading() bool {
	return r.status.Get() == StatusLoading
}

// Read returns the last committed value and error, tracking both.
func (r *Resource[T]) Read() (T, error) {
	return r.data.Get(), r.errSig.Get()
}

// Peek returns the last committed value and error without tracking.
func (r *Resource[T]) Peek() (T, error) {
	return r.data.Peek(), r.errSig.Peek()
}

// Name returns the name set with WithName, or "".
func (r *Resource[T]) Name() string {
	return r.name
}

// Refetch starts a new invocation unless the last commit is still fresh
// under WithStaleTime. The resource moves to StatusLoading; data and error
// keep their values until the new invocation settles.
func (r *Resource[T]) Refetch() {
	r.launch(nil, false)
}

// Invalidate discards freshness and starts a new invocation.
func (r *Resource[T]) Invalidate() {
	r.launch(nil, true)
}

// Mutate commits value locally as a successful result. Any in-flight
// invocation is superseded, so a slow fetch cannot clobber the mutation.
func (r *Resource[T]) Mutate(value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.token++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.fetchedAt = time.Now()
	r.data.Set(value)
	r.errSig.Set(nil)
	r.status.Set(StatusSuccess)
}

// OnSuccess registers fn to run after each successful commit, with the
// committed value. Discarded (stale) invocations never call it. Returns
// the resource for chaining; register before the first settlement to
// observe it.
func (r *Resource[T]) OnSuccess(fn func(T)) *Resource[T] {
	r.mu.Lock()
	r.onSuccess = fn
	r.mu.Unlock()
	return r
}

// OnError registers fn to run after each failed commit. Discarded
// invocations never call it. Returns the resource for chaining.
func (r *Resource[T]) OnError(fn func(error)) *Resource[T] {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
	return r
}

// Dispose cancels any in-flight invocation and stops the keyed watcher.
// The underlying signals keep serving their last values. Resources created
// inside a scope are disposed with it automatically. Idempotent.
func (r *Resource[T]) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	r.token++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	watch := r.watch
	r.watch = nil
	r.mu.Unlock()

	if watch != nil {
		watch.Dispose()
	}
}

// IsDisposed reports whether the resource has been disposed.
func (r *Resource[T]) IsDisposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

// SnapshotValue marshals the last committed data as JSON.
func (r *Resource[T]) SnapshotValue() ([]byte, error) {
	return r.data.SnapshotValue()
}

// RestoreValue commits previously snapshotted data as a successful result
// with zero freshness: the next Refetch revalidates it.
func (r *Resource[T]) RestoreValue(raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil
	}
	if err := r.data.RestoreValue(raw); err != nil {
		return err
	}
	r.token++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.fetchedAt = time.Time{}
	r.errSig.Set(nil)
	r.status.Set(StatusSuccess)
	return nil
}

// Persistent reports whether the resource opted into snapshots via
// WithPersist.
func (r *Resource[T]) Persistent() bool {
	return r.persist
}

// launch starts a new invocation. A non-nil bound fetch replaces the
// stored one first (keyed resources bind the current key this way). When
// force is false the launch respects WithStaleTime.
func (r *Resource[T]) launch(bound FetchFunc[T], force bool) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	if bound != nil {
		r.fetch = bound
	}
	if !force && r.staleTime > 0 && !r.fetchedAt.IsZero() && time.Since(r.fetchedAt) < r.staleTime {
		r.mu.Unlock()
		return
	}
	r.token++
	token := r.token
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(r.baseCtx)
	r.cancel = cancel
	fetch := r.fetch
	r.status.Set(StatusLoading)
	r.mu.Unlock()

	go r.invoke(ctx, token, fetch)
}

// invoke runs the fetch with retries and hands the outcome to commit.
func (r *Resource[T]) invoke(ctx context.Context, token uint64, fetch FetchFunc[T]) {
	var (
		value T
		err   error
	)
	for attempt := 0; ; attempt++ {
		value, err = r.attempt(ctx, fetch)
		if err == nil || attempt >= r.retries || ctx.Err() != nil {
			break
		}
		if !r.current(token) {
			return
		}
		select {
		case <-time.After(r.backoff):
		case <-ctx.Done():
		}
	}
	r.commit(token, value, err)
}

// attempt runs the fetch once, converting a panic into an error so a bad
// producer cannot take down the process from the fetch goroutine.
func (r *Resource[T]) attempt(ctx context.Context, fetch FetchFunc[T]) (value T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.name != "" {
				err = fmt.Errorf("resource %s: fetch panic: %v", r.name, rec)
			} else {
				err = fmt.Errorf("resource: fetch panic: %v", rec)
			}
		}
	}()
	return fetch(ctx)
}

// current reports whether token is still the latest invocation.
func (r *Resource[T]) current(token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return token == r.token && !r.disposed
}

// commit applies an invocation's outcome. Stale tokens are discarded
// silently: no signal moves, no callback fires. The token check and the
// signal writes share one critical section, so a commit can never
// interleave with a newer launch.
func (r *Resource[T]) commit(token uint64, value T, err error) {
	r.mu.Lock()
	if token != r.token || r.disposed {
		r.mu.Unlock()
		return
	}
	r.fetchedAt = time.Now()

	if err != nil {
		r.errSig.Set(err)
		r.status.Set(StatusError)
		onError := r.onError
		r.mu.Unlock()
		if onError != nil {
			onError(err)
		}
		return
	}

	r.data.Set(value)
	r.errSig.Set(nil)
	r.status.Set(StatusSuccess)
	onSuccess := r.onSuccess
	r.mu.Unlock()
	if onSuccess != nil {
		onSuccess(value)
	}
}
