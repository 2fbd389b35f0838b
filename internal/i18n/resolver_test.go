package i18n

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote/remotetest"
)

type memKV struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func newMemKV() *memKV { return &memKV{values: map[string]string{}} }

func (m *memKV) GetKV(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) SetKV(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func profileLang(code string, ok bool, err error) ProfileLanguageFunc {
	return func(ctx context.Context) (string, bool, error) { return code, ok, err }
}

func TestResolve_LocalWins(t *testing.T) {
	kv := newMemKV()
	kv.values[models.KVUserLanguage] = "pa"
	r := NewResolver(MustLoadEmbedded(), kv, profileLang("hi", true, nil), "en")

	assert.True(t, r.IsLoading())
	assert.Equal(t, "pa", r.Resolve(context.Background()))
	assert.False(t, r.IsLoading())
}

func TestResolve_RemoteProfileWhenNoLocal(t *testing.T) {
	kv := newMemKV()
	r := NewResolver(MustLoadEmbedded(), kv, profileLang("ml", true, nil), "en")

	assert.Equal(t, "ml", r.Resolve(context.Background()))
	assert.Equal(t, "ml", kv.values[models.KVUserLanguage], "remote choice is persisted locally")
}

func TestResolve_UnsupportedLocalFallsThrough(t *testing.T) {
	kv := newMemKV()
	kv.values[models.KVUserLanguage] = "ta"
	r := NewResolver(MustLoadEmbedded(), kv, profileLang("hi", true, nil), "en")

	assert.Equal(t, "hi", r.Resolve(context.Background()))
}

func TestResolve_DefaultWhenNothingResolves(t *testing.T) {
	tests := []struct {
		name    string
		profile ProfileLanguageFunc
	}{
		{"guest", profileLang("", false, nil)},
		{"remote error", profileLang("", false, errors.New("offline"))},
		{"unsupported remote", profileLang("kn", true, nil)},
		{"no remote", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newMemKV()
			r := NewResolver(MustLoadEmbedded(), kv, tt.profile, "en")
			assert.Equal(t, "en", r.Resolve(context.Background()))
			assert.Equal(t, "en", kv.values[models.KVUserLanguage])
		})
	}
}

func TestResolve_ConfiguredDefault(t *testing.T) {
	r := NewResolver(MustLoadEmbedded(), newMemKV(), nil, "hi")
	assert.Equal(t, "hi", r.Resolve(context.Background()))

	bad := NewResolver(MustLoadEmbedded(), newMemKV(), nil, "zz")
	assert.Equal(t, "en", bad.Resolve(context.Background()))
}

func TestResolve_StoreFailureStillResolves(t *testing.T) {
	kv := newMemKV()
	kv.setErr = errors.New("disk full")
	r := NewResolver(MustLoadEmbedded(), kv, profileLang("hi", true, nil), "en")

	assert.Equal(t, "hi", r.Resolve(context.Background()))
	assert.False(t, r.IsLoading())
}

func TestT_FallsBackToEnglish(t *testing.T) {
	// Punjabi has no entry for "all_lessons_complete" but English does.
	c := MustLoadEmbedded()
	require.Contains(t, c.Missing("pa"), "all_lessons_complete")

	r := NewResolver(c, newMemKV(), nil, "en")
	require.NoError(t, r.SetLanguage(context.Background(), "pa"))

	assert.Equal(t, "All lessons complete!", r.T("all_lessons_complete"))
	assert.NotEqual(t, c.Lookup("en", "choose_crop"), r.T("choose_crop"))
}

func TestT_RawKeyWhenMissingEverywhere(t *testing.T) {
	r := NewResolver(MustLoadEmbedded(), newMemKV(), nil, "en")
	assert.Equal(t, "nonexistent_key", r.T("nonexistent_key"))
}

func TestT_TotalForEverySupportedLanguage(t *testing.T) {
	c := MustLoadEmbedded()
	r := NewResolver(c, newMemKV(), nil, "en")

	for _, code := range c.Languages() {
		require.NoError(t, r.SetLanguage(context.Background(), code))
		for _, key := range c.Keys() {
			assert.NotEmpty(t, r.T(key), "%s/%s", code, key)
		}
	}
}

func TestFormat(t *testing.T) {
	r := NewResolver(MustLoadEmbedded(), newMemKV(), nil, "en")
	assert.Equal(t, "Win 50 XP", r.Format("win_xp", map[string]string{"xp": "50"}))

	require.NoError(t, r.SetLanguage(context.Background(), "hi"))
	assert.Equal(t, "50 XP जीतें", r.Format("win_xp", map[string]string{"xp": "50"}))
}

func TestSetLanguage(t *testing.T) {
	kv := newMemKV()
	r := NewResolver(MustLoadEmbedded(), kv, nil, "en")

	var seen []string
	cancel := r.Subscribe(func(code string) { seen = append(seen, code) })
	defer cancel()

	require.NoError(t, r.SetLanguage(context.Background(), "HI"))
	assert.Equal(t, "hi", r.Language())
	assert.Equal(t, "hi", kv.values[models.KVUserLanguage])
	assert.Equal(t, []string{"hi"}, seen)

	err := r.SetLanguage(context.Background(), "ta")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Equal(t, "hi", r.Language())

	// Setting the same language does not notify again.
	require.NoError(t, r.SetLanguage(context.Background(), "hi"))
	assert.Len(t, seen, 1)
}

func TestSubscribe_SeesChangesFromResolve(t *testing.T) {
	kv := newMemKV()
	r := NewResolver(MustLoadEmbedded(), kv, nil, "en")
	r.Resolve(context.Background())

	var seen []string
	cancel := r.Subscribe(func(code string) { seen = append(seen, code) })

	// Another command changed the stored language.
	kv.values[models.KVUserLanguage] = "ml"
	r.Resolve(context.Background())
	cancel()
	kv.values[models.KVUserLanguage] = "pa"
	r.Resolve(context.Background())

	assert.Equal(t, []string{"ml"}, seen)
}

func TestRemoteProfileLanguage(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodGet, "/rest/v1/profiles", http.StatusOK, []map[string]string{{"language": "pa"}})

	code, ok, err := RemoteProfileLanguage(srv.Client())(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "guests have no profile")
	assert.Empty(t, code)

	code, ok, err = RemoteProfileLanguage(srv.SignedInClient(t, "u1"))(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "pa", code)

	reqs := srv.Requests(http.MethodGet, "/rest/v1/profiles")
	require.Len(t, reqs, 1)
	assert.Equal(t, "eq.u1", reqs[0].Query.Get("id"))
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{"PA": "pa", "pa-IN": "pa", "hi_IN": "hi", " en ": "en", "kok": "kok"}
	for in, want := range tests {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := Normalize("")
	assert.Error(t, err)
}

func TestLoadFromFS_RequiresBaseCatalog(t *testing.T) {
	_, err := LoadFromFS(fstest.MapFS{
		"locales/hi.yaml": {Data: []byte("confirm: \"पुष्टि करें\"\n")},
	})
	assert.Error(t, err)

	c, err := LoadFromFS(fstest.MapFS{
		"locales/en.yaml": {Data: []byte("confirm: CONFIRM\nblank: \"\"\n")},
		"locales/hi.yaml": {Data: []byte("confirm: \"\"\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRM", c.Lookup("hi", "confirm"), "empty translations fall back")
	assert.Equal(t, "blank", c.Lookup("en", "blank"))
}

func TestOptions_LocksLanguagesWithoutCatalog(t *testing.T) {
	opts := MustLoadEmbedded().Options()
	require.Len(t, opts, 9)
	assert.Equal(t, "hi", opts[0].Code)
	for _, o := range opts {
		switch o.Code {
		case "hi", "en", "pa", "ml":
			assert.False(t, o.Locked, o.Code)
		default:
			assert.True(t, o.Locked, o.Code)
		}
	}
}
