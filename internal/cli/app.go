package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asteroid-belt/kisan/internal/cachedquery"
	"github.com/asteroid-belt/kisan/internal/config"
	"github.com/asteroid-belt/kisan/internal/db"
	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/mirror"
	"github.com/asteroid-belt/kisan/internal/onboarding"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// app holds everything a command needs. Commands open it, use it, and close it.
type app struct {
	cfg        *config.Config
	db         *db.DB
	remote     *remote.Client
	languages  *i18n.Resolver
	onboarding *onboarding.Progression
	mirror     *mirror.Reconciler

	// revalidations started for cache hits inside the peek window
	bgOnce       sync.Once
	bgCtx        context.Context
	bgCancel     context.CancelFunc
	revalidating sync.WaitGroup
}

// openApp loads config, opens the local database, restores the session and
// resolves the display language.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	paths := config.GetPaths(cfg)
	if err := log.Init(paths.Logs, cfg.Debug); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	client := remote.New(remote.Options{
		URL:       cfg.Backend.URL,
		AnonKey:   cfg.Backend.AnonKey,
		RateLimit: cfg.Backend.RateLimit,
		Store:     sessionStore{db: database},
	})
	if err := client.RestoreSession(ctx); err != nil {
		log.Warnf("restore session: %v", err)
	}

	catalog, err := i18n.LoadEmbedded()
	if err != nil {
		_ = database.Close()
		_ = log.Close()
		return nil, fmt.Errorf("load translations: %w", err)
	}
	resolver := i18n.NewResolver(catalog, database, i18n.RemoteProfileLanguage(client), cfg.DefaultLanguage)
	resolver.Resolve(ctx)

	reconciler := mirror.New(database, client, cfg.Mirror)

	a := &app{
		cfg:       cfg,
		db:        database,
		remote:    client,
		languages: resolver,
		mirror:    reconciler,
	}
	a.onboarding = &onboarding.Progression{
		KV:          database,
		Languages:   resolver,
		Session:     client,
		Mirror:      reconciler,
		ProfileCrop: onboarding.RemoteProfileCrop(client),
		Recorder:    telemetryClient,
	}
	return a, nil
}

// Close waits for background revalidations, flushes pending mirror writes
// once, then releases the database.
func (a *app) Close() {
	a.waitRevalidation(revalidateGrace)
	if a.remote.UserID() != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if rep, err := a.mirror.DrainOnce(ctx); err != nil {
			log.Debugf("drain mirror on exit: %v", err)
		} else if rep.Attempted > 0 {
			log.Debugf("mirror: %d done, %d retrying, %d failed", rep.Done, rep.Retrying, rep.Failed)
		}
		cancel()
	}
	_ = a.mirror.Close()
	_ = a.db.Close()
	_ = log.Close()
}

func (a *app) t(key string) string {
	return a.languages.T(key)
}

func (a *app) userID() string {
	return a.remote.UserID()
}

// queryOptions returns the cache options from config.
func (a *app) queryOptions() []cachedquery.Option {
	return []cachedquery.Option{
		cachedquery.WithTimeout(a.cfg.Cache.FetchTimeout),
		cachedquery.WithMaxStaleness(a.cfg.Cache.MaxStaleness),
	}
}

// load runs a cached query to completion. Without --refresh a cache entry
// younger than the peek window is shown at once while the fetch runs in the
// background and updates the cache for the next command; offline results are
// reported and tracked.
func load[T any](ctx context.Context, a *app, key cachedquery.Key, fetch cachedquery.Fetcher[T]) (*T, error) {
	if !refreshFlag {
		if cached := cachedquery.Peek[T](a.db, key, a.queryOptions()...); cached != nil && !a.stale(key) {
			revalidate(a, key, fetch)
			return cached, nil
		}
	}

	st := cachedquery.Get(ctx, a.db, key, fetch, a.queryOptions()...)
	if st.Data == nil {
		if st.IsOffline {
			return nil, fmt.Errorf("%s: network unavailable and nothing cached", key.Name())
		}
		return nil, fmt.Errorf("%s: no data", key.Name())
	}
	if st.IsOffline {
		age := time.Since(st.UpdatedAt)
		telemetryClient.TrackOfflineServed(key.Name(), int64(age.Seconds()))
		printNotice(a.t("offline_notice") + " (" + formatTimeSince(st.UpdatedAt) + ")")
	}
	return st.Data, nil
}

// revalidate fetches key in the background. The result only lands in the
// cache; Close waits for it.
func revalidate[T any](a *app, key cachedquery.Key, fetch cachedquery.Fetcher[T]) {
	ctx := a.background()
	a.revalidating.Add(1)
	go func() {
		defer a.revalidating.Done()
		cachedquery.Get(ctx, a.db, key, fetch, a.queryOptions()...)
	}()
}

func (a *app) background() context.Context {
	a.bgOnce.Do(func() {
		a.bgCtx, a.bgCancel = context.WithCancel(context.Background())
	})
	return a.bgCtx
}

// revalidateGrace bounds how long Close waits for background fetches.
const revalidateGrace = 3 * time.Second

// waitRevalidation waits up to grace for background fetches, then cancels the
// rest and waits for them to unwind.
func (a *app) waitRevalidation(grace time.Duration) {
	a.background()
	done := make(chan struct{})
	go func() {
		a.revalidating.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		a.bgCancel()
		<-done
	}
	a.bgCancel()
}

// stale reports whether the cache entry for key is older than the peek window.
func (a *app) stale(key cachedquery.Key) bool {
	entry, err := a.db.GetCache(key.String())
	if err != nil || entry == nil {
		return true
	}
	return entry.Age(time.Now()) > peekWindow
}

// peekWindow is how long a cached payload is shown without refetching.
const peekWindow = 2 * time.Minute

// sessionDB is the part of *db.DB that persists the session.
type sessionDB interface {
	SaveSession(ctx context.Context, s db.StoredSession) error
	LoadSession(ctx context.Context) (*db.StoredSession, error)
	ClearSession(ctx context.Context) error
}

// sessionStore adapts the local database to remote.SessionStore.
type sessionStore struct {
	db sessionDB
}

func (s sessionStore) LoadSession(ctx context.Context) (*remote.Session, error) {
	stored, err := s.db.LoadSession(ctx)
	if err != nil || stored == nil {
		return nil, err
	}
	sess := &remote.Session{
		AccessToken:  stored.AccessToken,
		TokenType:    "bearer",
		RefreshToken: stored.RefreshToken,
		User:         remote.User{ID: stored.UserID, Email: stored.Email},
	}
	if !stored.ExpiresAt.IsZero() {
		sess.ExpiresAt = stored.ExpiresAt.Unix()
	}
	return sess, nil
}

func (s sessionStore) SaveSession(ctx context.Context, sess *remote.Session) error {
	if sess == nil {
		return s.db.ClearSession(ctx)
	}
	stored := db.StoredSession{
		UserID:       sess.User.ID,
		Email:        sess.User.Email,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.Expiry(),
	}
	return s.db.SaveSession(ctx, stored)
}

func (s sessionStore) ClearSession(ctx context.Context) error {
	return s.db.ClearSession(ctx)
}
