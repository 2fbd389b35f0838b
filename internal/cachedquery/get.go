package cachedquery

import "context"

// Get runs a query to completion: the cached value is loaded, one fetch is
// awaited, and the final state is returned. Commands that print once use this
// instead of subscribing.
func Get[T any](ctx context.Context, store Store, key Key, fetch Fetcher[T], opts ...Option) State[T] {
	q := New(store, key, fetch, opts...)
	q.Start(ctx)
	_ = q.Wait(ctx)
	q.Close()
	return q.State()
}

// Peek returns the cached value for key without fetching, or nil.
func Peek[T any](store Store, key Key, opts ...Option) *T {
	q := New[T](store, key, nil, opts...)
	q.loadCache()
	return q.State().Data
}
