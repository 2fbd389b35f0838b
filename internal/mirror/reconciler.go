// Package mirror copies local writes to the backend profile in the background.
//
// Local state is always written first and stays authoritative. Each queued
// item becomes a single UPDATE ... WHERE match = value against the backend;
// failures are retried with exponential backoff until MaxAttempts.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asteroid-belt/kisan/internal/config"
	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// batchSize bounds how many items one drain attempts.
const batchSize = 50

// Store is the local outbox. *db.DB implements it.
type Store interface {
	EnqueueMirror(ctx context.Context, item models.MirrorItem) (*models.MirrorItem, error)
	ListDueMirror(ctx context.Context, now time.Time, limit int) ([]models.MirrorItem, error)
	MarkMirrorDone(ctx context.Context, id string) error
	MarkMirrorRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string, failed bool) error
}

// Remote applies the writes. *remote.Client implements it.
type Remote interface {
	UserID() string
	Update(ctx context.Context, table string, values interface{}, filters []remote.Filter, opts ...remote.MutationOption) (*remote.Result, error)
}

// Report summarises one drain.
type Report struct {
	Attempted int
	Done      int
	Retrying  int
	Failed    int
	// Skipped is true when there was no session to write with.
	Skipped bool
}

// Reconciler drains the outbox, on demand or on an interval.
type Reconciler struct {
	store  Store
	remote Remote
	cfg    config.MirrorConfig
	now    func() time.Time

	mu         sync.Mutex
	running    bool
	cancelFunc context.CancelFunc
	done       chan struct{}
	nudge      chan struct{}
}

// New creates a reconciler. Zero config fields take the defaults.
func New(store Store, r Remote, cfg config.MirrorConfig) *Reconciler {
	def := config.DefaultConfig().Mirror
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	return &Reconciler{
		store:  store,
		remote: r,
		cfg:    cfg,
		now:    time.Now,
		nudge:  make(chan struct{}, 1),
	}
}

// Backoff returns the delay after the given number of failed attempts:
// base * 2^(attempts-1), capped at max.
func Backoff(attempts int, base, max time.Duration) time.Duration {
	if attempts < 1 {
		return 0
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= max || d <= 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Enqueue records item in the outbox and wakes the background loop.
func (r *Reconciler) Enqueue(ctx context.Context, item models.MirrorItem) error {
	if _, err := r.store.EnqueueMirror(ctx, item); err != nil {
		return err
	}
	r.Nudge()
	return nil
}

// Nudge asks a running loop to drain now. It never blocks.
func (r *Reconciler) Nudge() {
	select {
	case r.nudge <- struct{}{}:
	default:
	}
}

// DrainOnce attempts every due item. Without a session nothing is attempted
// and items stay pending.
func (r *Reconciler) DrainOnce(ctx context.Context) (Report, error) {
	var rep Report
	if r.remote == nil || r.remote.UserID() == "" {
		rep.Skipped = true
		return rep, nil
	}

	items, err := r.store.ListDueMirror(ctx, r.now(), batchSize)
	if err != nil {
		return rep, fmt.Errorf("list outbox: %w", err)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Attempted++

		_, err := r.remote.Update(ctx, item.TargetTable,
			map[string]interface{}{item.TargetColumn: item.Value},
			[]remote.Filter{remote.Eq(item.MatchColumn, item.MatchValue)})
		if err == nil {
			if err := r.store.MarkMirrorDone(ctx, item.ID); err != nil {
				return rep, fmt.Errorf("mark %s done: %w", item.ID, err)
			}
			rep.Done++
			continue
		}
		if errors.Is(err, context.Canceled) {
			return rep, err
		}

		attempts := item.Attempts + 1
		failed := attempts >= r.cfg.MaxAttempts
		next := r.now().Add(Backoff(attempts, r.cfg.BaseBackoff, r.cfg.MaxBackoff))
		if failed {
			log.Warnf("mirror %s.%s gave up after %d attempts: %v", item.TargetTable, item.TargetColumn, attempts, err)
			rep.Failed++
		} else {
			log.Debugf("mirror %s.%s attempt %d failed: %v", item.TargetTable, item.TargetColumn, attempts, err)
			rep.Retrying++
		}
		if err := r.store.MarkMirrorRetry(ctx, item.ID, attempts, next, err.Error(), failed); err != nil {
			return rep, fmt.Errorf("reschedule %s: %w", item.ID, err)
		}
	}
	return rep, nil
}

// Start runs the drain loop in a goroutine until Stop or ctx is cancelled.
// Calling Start on a running reconciler does nothing.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.done = make(chan struct{})
	ctx, r.cancelFunc = context.WithCancel(ctx)
	done := r.done
	r.mu.Unlock()

	go r.loop(ctx, done)
}

func (r *Reconciler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.DrainOnce(ctx); err != nil && ctx.Err() == nil {
			log.Warnf("mirror drain: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.nudge:
		}
	}
}

// Running reports whether the loop is active.
func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Stop cancels the loop without waiting for it.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	r.mu.Unlock()
}

// Wait blocks until the loop has exited or ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop and waits up to a second for it to exit.
func (r *Reconciler) Close() error {
	r.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return r.Wait(ctx)
}
