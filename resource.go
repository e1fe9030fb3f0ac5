package ripple

import (
	"context"

	"github.com/ripple-dev/ripple/pkg/resource"
)

// =============================================================================
// Resource status
// =============================================================================

// Status is the lifecycle state of a resource.
type Status = resource.Status

// Status constants for Resource: use ripple.StatusLoading, etc.
const (
	StatusIdle    Status = resource.StatusIdle    // Before the first fetch starts
	StatusLoading Status = resource.StatusLoading // Fetch in flight; previous data stays visible
	StatusSuccess Status = resource.StatusSuccess // Latest fetch committed a value
	StatusError   Status = resource.StatusError   // Latest fetch committed an error
)

// =============================================================================
// Resource types
// =============================================================================

// Resource manages asynchronous data fetching as a reactive triple of
// status, data, and error. Construction starts the first fetch; a stale
// invocation can never overwrite a newer one.
//
// Example:
//
//	users := ripple.NewResource(func(ctx context.Context) ([]User, error) {
//	    return api.FetchUsers(ctx)
//	})
//
//	ripple.CreateEffect(func() ripple.Cleanup {
//	    if users.Loading() {
//	        renderSpinner()
//	        return nil
//	    }
//	    if err := users.Err(); err != nil {
//	        renderError(err)
//	        return nil
//	    }
//	    renderList(users.Data())
//	    return nil
//	})
type Resource[T any] = resource.Resource[T]

// FetchFunc produces a resource's value. The context is cancelled when the
// invocation is superseded or the resource is disposed.
type FetchFunc[T any] = resource.FetchFunc[T]

// ResourceOption configures a resource at construction time.
type ResourceOption = resource.Option

// Resource options.
var WithName = resource.WithName
var WithStaleTime = resource.WithStaleTime
var WithRetry = resource.WithRetry
var WithPersist = resource.WithPersist
var WithLazy = resource.WithLazy
var WithContext = resource.WithContext

// =============================================================================
// Resource constructors
// =============================================================================

// NewResource creates a Resource with the given fetch function and starts
// the first fetch before returning.
//
// Example:
//
//	user := ripple.NewResource(func(ctx context.Context) (*User, error) {
//	    return api.FetchUser(ctx, 1)
//	}, ripple.WithRetry(2, time.Second))
func NewResource[T any](fetch FetchFunc[T], opts ...ResourceOption) *Resource[T] {
	return resource.New(fetch, opts...)
}

// NewKeyedResource creates a Resource that refetches whenever the reactive
// key changes. source runs tracked; the fetch itself runs on its own
// goroutine and records no dependencies.
//
// Example:
//
//	userID := ripple.NewSignal(1)
//	user := ripple.NewKeyedResource(
//	    func() int { return userID.Get() },
//	    func(ctx context.Context, id int) (*User, error) {
//	        return api.FetchUser(ctx, id)
//	    },
//	)
//	userID.Set(2) // supersedes any in-flight fetch for user 1
func NewKeyedResource[K comparable, T any](source func() K, fetch func(ctx context.Context, key K) (T, error), opts ...ResourceOption) *Resource[T] {
	return resource.NewKeyed(source, fetch, opts...)
}
