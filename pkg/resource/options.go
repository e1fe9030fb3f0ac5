package resource

import (
	"context"
	"time"
)

// options collects construction-time configuration. Options must be given
// to New or NewKeyed directly because the first invocation starts before
// the constructor returns.
type options struct {
	name      string
	staleTime time.Duration
	retries   int
	backoff   time.Duration
	persist   bool
	lazy      bool
	baseCtx   context.Context
}

// Option configures a resource at construction time.
type Option func(*options)

// WithName labels the resource. The name shows up on the underlying
// signals as name.status, name.data, and name.err.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithStaleTime sets how long a committed value stays fresh. Refetch is a
// no-op while the last commit is younger than d; Invalidate and key
// changes ignore freshness. Zero means every Refetch fetches.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) {
		o.staleTime = d
	}
}

// WithRetry retries a failing fetch up to retries extra times, waiting
// backoff between attempts. A superseded invocation stops retrying.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(o *options) {
		if retries < 0 {
			retries = 0
		}
		o.retries = retries
		o.backoff = backoff
	}
}

// WithPersist opts the resource's committed data into snapshot
// persistence. Restored data is served as StatusSuccess with zero
// freshness, so the next Refetch revalidates it.
func WithPersist() Option {
	return func(o *options) {
		o.persist = true
	}
}

// WithLazy defers the first fetch. The resource stays StatusIdle until
// Refetch, Invalidate, or a keyed source change starts one.
func WithLazy() Option {
	return func(o *options) {
		o.lazy = true
	}
}

// WithContext sets the parent context for fetch invocations. Cancelling it
// cancels any in-flight fetch and all future ones. Defaults to
// context.Background().
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.baseCtx = ctx
	}
}
