// Package i18n resolves the user's language and translates UI strings.
//
// The language is resolved from the local store, then the signed-in user's
// profile, then DefaultLanguage. Lookups fall back from the current language
// to the base catalog and finally to the raw key.
package i18n

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// ErrUnsupportedLanguage is returned for codes without a catalog.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// LocalStore is the on-device key-value store. *db.DB implements it.
type LocalStore interface {
	GetKV(ctx context.Context, key string) (string, bool, error)
	SetKV(ctx context.Context, key, value string) error
}

// ProfileLanguageFunc reads the signed-in user's stored language. ok is false
// for guests or when the profile has none.
type ProfileLanguageFunc func(ctx context.Context) (code string, ok bool, err error)

// RemoteProfileLanguage reads profiles.language for the current session.
func RemoteProfileLanguage(c *remote.Client) ProfileLanguageFunc {
	return func(ctx context.Context) (string, bool, error) {
		uid := c.UserID()
		if uid == "" {
			return "", false, nil
		}
		var row struct {
			Language *string `json:"language"`
		}
		found, err := c.From("profiles").Select("language").Eq("id", uid).MaybeSingle(ctx, &row)
		if err != nil {
			return "", false, err
		}
		if !found || row.Language == nil || *row.Language == "" {
			return "", false, nil
		}
		return *row.Language, true, nil
	}
}

// Resolver is the process-wide current-language cell.
type Resolver struct {
	catalog     *Catalog
	store       LocalStore
	profile     ProfileLanguageFunc
	defaultLang string

	mu      sync.RWMutex
	lang    string
	loading bool
	subs    map[int]func(string)
	nextSub int
}

// NewResolver creates a resolver. profile may be nil. defaultLang falls back
// to DefaultLanguage when it has no catalog.
func NewResolver(catalog *Catalog, store LocalStore, profile ProfileLanguageFunc, defaultLang string) *Resolver {
	if code, err := Normalize(defaultLang); err == nil && catalog.Has(code) {
		defaultLang = code
	} else {
		defaultLang = DefaultLanguage
	}
	return &Resolver{
		catalog:     catalog,
		store:       store,
		profile:     profile,
		defaultLang: defaultLang,
		lang:        defaultLang,
		loading:     true,
		subs:        make(map[int]func(string)),
	}
}

// Resolve determines the current language and persists it locally. It never
// fails: store and backend errors are logged and the next source is tried.
// It may be called repeatedly; subscribers are notified on change.
func (r *Resolver) Resolve(ctx context.Context) string {
	code := r.resolve(ctx)

	if err := r.store.SetKV(ctx, models.KVUserLanguage, code); err != nil {
		log.Warnf("persist language: %v", err)
	}

	r.mu.Lock()
	changed := r.lang != code
	r.lang = code
	r.loading = false
	r.mu.Unlock()

	if changed {
		r.notify(code)
	}
	return code
}

func (r *Resolver) resolve(ctx context.Context) string {
	local, ok, err := r.store.GetKV(ctx, models.KVUserLanguage)
	if err != nil {
		log.Warnf("read local language: %v", err)
	}
	if ok {
		if code, supported := r.supported(local); supported {
			return code
		}
	}

	if r.profile != nil {
		remoteLang, ok, err := r.profile(ctx)
		switch {
		case err != nil:
			log.Debugf("profile language unavailable: %v", err)
		case ok:
			if code, supported := r.supported(remoteLang); supported {
				return code
			}
		}
	}

	return r.defaultLang
}

func (r *Resolver) supported(code string) (string, bool) {
	norm, err := Normalize(code)
	if err != nil {
		return "", false
	}
	return norm, r.catalog.Has(norm)
}

// Language returns the current language code.
func (r *Resolver) Language() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lang
}

// IsLoading is true until the first Resolve completes.
func (r *Resolver) IsLoading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// T translates key in the current language.
func (r *Resolver) T(key string) string {
	return r.catalog.Lookup(r.Language(), key)
}

// Format translates key and substitutes {name} placeholders from vars.
func (r *Resolver) Format(key string, vars map[string]string) string {
	s := r.T(key)
	if len(vars) == 0 {
		return s
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// SetLanguage switches the language immediately and persists it locally.
// It does not write the remote profile; callers that want that mirror it.
func (r *Resolver) SetLanguage(ctx context.Context, code string) error {
	norm, ok := r.supported(code)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}

	r.mu.Lock()
	changed := r.lang != norm
	r.lang = norm
	r.loading = false
	r.mu.Unlock()

	if changed {
		r.notify(norm)
	}

	if err := r.store.SetKV(ctx, models.KVUserLanguage, norm); err != nil {
		return fmt.Errorf("persist language: %w", err)
	}
	return nil
}

// Subscribe calls fn whenever the language changes. The returned func
// unsubscribes.
func (r *Resolver) Subscribe(fn func(code string)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Resolver) notify(code string) {
	r.mu.RLock()
	subs := make([]func(string), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		fn(code)
	}
}

// Supported returns the language picker entries.
func (r *Resolver) Supported() []LanguageOption {
	return r.catalog.Options()
}

// Catalog returns the underlying catalog.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}
