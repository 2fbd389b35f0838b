// Package cachedquery wraps remote fetches with a local cache: cached data is
// shown first, a background fetch revalidates it, and a failed fetch keeps the
// old data and flags the query as offline.
package cachedquery

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/asteroid-belt/kisan/internal/log"
)

// Fetcher produces fresh data from the backend.
type Fetcher[T any] func(ctx context.Context) (T, error)

// State is a snapshot of a query.
type State[T any] struct {
	// Data is nil until a cached or fetched value is available.
	Data *T
	// Loading is true until the first value or the first fetch outcome.
	Loading bool
	// Refreshing is true while a Refresh is in flight.
	Refreshing bool
	// IsOffline is true when the latest fetch failed; Data may be stale.
	IsOffline bool
	// UpdatedAt is when Data was fetched, zero when Data is nil.
	UpdatedAt time.Time
}

type options struct {
	timeout      time.Duration
	maxStaleness time.Duration
	now          func() time.Time
}

// Option configures a Query.
type Option func(*options)

// WithTimeout bounds every fetch. A timed-out fetch counts as a failure.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithMaxStaleness treats cache entries older than d as absent. Zero (the
// default) keeps cached entries valid until a newer fetch replaces them.
func WithMaxStaleness(d time.Duration) Option {
	return func(o *options) { o.maxStaleness = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Query is one cached, revalidating view of a remote fetch. It is safe for
// concurrent use.
type Query[T any] struct {
	store Store
	key   Key
	fetch Fetcher[T]
	opts  options

	mu         sync.Mutex
	state      State[T]
	refreshing int
	seq        uint64 // last issued fetch
	applied    uint64 // last fetch whose outcome was applied
	started    bool
	initial    chan struct{}
	subs       map[int]func(State[T])
	nextSub    int

	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

// New creates a query for key. Nothing happens until Start or Refresh.
func New[T any](store Store, key Key, fetch Fetcher[T], opts ...Option) *Query[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Query[T]{
		store:   store,
		key:     key,
		fetch:   fetch,
		opts:    o,
		state:   State[T]{Loading: true},
		initial: make(chan struct{}),
		subs:    make(map[int]func(State[T])),
	}
}

// Key returns the query's cache key.
func (q *Query[T]) Key() Key {
	return q.key
}

// Start shows the cached value (if any) before returning, then revalidates in
// the background. Calling Start again is a no-op.
func (q *Query[T]) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	q.loadCache()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(q.initial)
		q.run(ctx)
	}()
}

// Wait blocks until the fetch launched by Start has completed or ctx ends.
// It returns immediately if Start was never called.
func (q *Query[T]) Wait(ctx context.Context) error {
	q.mu.Lock()
	started := q.started
	q.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-q.initial:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh runs one fetch and waits for it. Data stays visible meanwhile and
// Refreshing is reset whatever the outcome. It returns the resulting state.
func (q *Query[T]) Refresh(ctx context.Context) State[T] {
	q.mu.Lock()
	q.refreshing++
	q.state.Refreshing = true
	q.mu.Unlock()
	q.notify()

	q.run(ctx)

	q.mu.Lock()
	q.refreshing--
	q.state.Refreshing = q.refreshing > 0
	q.mu.Unlock()
	q.notify()

	return q.State()
}

// State returns a snapshot of the query.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Subscribe calls fn with the current state and after every change. The
// returned func unsubscribes.
func (q *Query[T]) Subscribe(fn func(State[T])) func() {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.mu.Unlock()

	q.notifyMu.Lock()
	fn(q.State())
	q.notifyMu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

// Close waits for background fetches to finish.
func (q *Query[T]) Close() {
	q.wg.Wait()
}

// loadCache populates Data from the store. Misses, stale entries and payloads
// that no longer decode into T leave the state untouched.
func (q *Query[T]) loadCache() {
	entry, err := q.store.GetCache(string(q.key))
	if err != nil {
		log.Debugf("cache read %s: %v", q.key, err)
		return
	}
	if entry == nil {
		return
	}
	if q.opts.maxStaleness > 0 && q.opts.now().Sub(entry.StoredAt) > q.opts.maxStaleness {
		log.Debugf("cache entry %s is older than %s, ignoring", q.key, q.opts.maxStaleness)
		return
	}
	var v T
	if err := json.Unmarshal([]byte(entry.Payload), &v); err != nil {
		log.Debugf("cache entry %s does not decode: %v", q.key, err)
		return
	}

	q.mu.Lock()
	// A fetch that already completed wins over the cache.
	if q.applied == 0 {
		q.state.Data = &v
		q.state.Loading = false
		q.state.UpdatedAt = entry.StoredAt
	}
	q.mu.Unlock()
	q.notify()
}

// run performs one sequence-tagged fetch and applies its outcome unless a
// later-issued fetch has already been applied.
func (q *Query[T]) run(ctx context.Context) {
	q.mu.Lock()
	q.seq++
	seq := q.seq
	q.mu.Unlock()

	fctx := ctx
	if q.opts.timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, q.opts.timeout)
		defer cancel()
	}

	v, err := q.fetch(fctx)

	q.mu.Lock()
	if seq < q.applied {
		q.mu.Unlock()
		log.Debugf("discarding out-of-order fetch %d for %s", seq, q.key)
		return
	}
	q.applied = seq
	q.state.Loading = false

	if err != nil {
		q.state.IsOffline = true
		q.mu.Unlock()
		log.Debugf("fetch %s failed, keeping cached data: %v", q.key, err)
		q.notify()
		return
	}

	now := q.opts.now()
	q.state.Data = &v
	q.state.IsOffline = false
	q.state.UpdatedAt = now

	// Persist under the lock so cache writes land in sequence order.
	if payload, mErr := json.Marshal(v); mErr != nil {
		log.Warnf("encode %s for cache: %v", q.key, mErr)
	} else if pErr := q.store.PutCache(string(q.key), string(payload), now); pErr != nil {
		log.Warnf("cache write %s: %v", q.key, pErr)
	}
	q.mu.Unlock()
	q.notify()
}

// notify delivers the current state to subscribers, one delivery at a time
// so no subscriber observes states out of order.
func (q *Query[T]) notify() {
	q.notifyMu.Lock()
	defer q.notifyMu.Unlock()

	q.mu.Lock()
	state := q.state
	subs := make([]func(State[T]), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
