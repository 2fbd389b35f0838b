package onboarding

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote/remotetest"
)

type memKV struct {
	mu     sync.Mutex
	values map[string]string
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
	m.values[key] = value
	return nil
}

func (m *memKV) DeleteKV(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

type fakeSession string

func (s fakeSession) UserID() string { return string(s) }

type recordingMirror struct {
	items []models.MirrorItem
	err   error
}

func (m *recordingMirror) Enqueue(ctx context.Context, item models.MirrorItem) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, item)
	return nil
}

type recordingSteps struct{ steps []string }

func (r *recordingSteps) TrackOnboardingStep(step, value string) {
	r.steps = append(r.steps, step+"="+value)
}

func newProgression(uid string) (*Progression, *memKV, *recordingMirror) {
	kv := newMemKV()
	m := &recordingMirror{}
	p := &Progression{
		KV:        kv,
		Languages: i18n.NewResolver(i18n.MustLoadEmbedded(), kv, nil, "en"),
		Session:   fakeSession(uid),
		Mirror:    m,
	}
	return p, kv, m
}

func TestDecideLandingRoute(t *testing.T) {
	tests := []struct {
		name    string
		flags   Flags
		session bool
		want    Route
	}{
		{"fresh install", Flags{}, false, NeedsLanguage},
		{"language only", Flags{Language: "hi"}, false, NeedsCrop},
		{"reward pending", Flags{Language: "hi", Crop: "banana"}, false, NeedsFirstReward},
		{"guest fully onboarded", Flags{Language: "hi", Crop: "banana", RewardClaimed: true}, false, NeedsAuth},
		{"session overrides flags", Flags{Language: "hi", Crop: "banana", RewardClaimed: true}, true, Home},
		{"session on fresh install", Flags{}, true, Home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideLandingRoute(tt.flags, tt.session))
		})
	}
}

func TestRoutePathsAndNames(t *testing.T) {
	assert.Equal(t, "/language", NeedsLanguage.Path())
	assert.Equal(t, "/crop", NeedsCrop.Path())
	assert.Equal(t, "/quest-details?id=1", NeedsFirstReward.Path())
	assert.Equal(t, "/login", NeedsAuth.Path())
	assert.Equal(t, "/dashboard", Home.Path())
	assert.Equal(t, "needs-first-reward", NeedsFirstReward.String())
	assert.Equal(t, "unknown", Route(42).String())
}

// Every order of setting the three flags must produce a non-decreasing route.
func TestDecideLandingRoute_NeverRegresses(t *testing.T) {
	setters := []func(*Flags){
		func(f *Flags) { f.Language = "hi" },
		func(f *Flags) { f.Crop = "rice" },
		func(f *Flags) { f.RewardClaimed = true },
	}
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	for _, session := range []bool{false, true} {
		for _, perm := range perms {
			var f Flags
			prev := DecideLandingRoute(f, session)
			for _, i := range perm {
				setters[i](&f)
				got := DecideLandingRoute(f, session)
				assert.GreaterOrEqual(t, int(got), int(prev), "perm %v session %v", perm, session)
				prev = got
			}
		}
	}
}

func TestProgression_GuestWalkthrough(t *testing.T) {
	ctx := context.Background()
	p, kv, m := newProgression("")
	rec := &recordingSteps{}
	p.Recorder = rec

	route, err := p.Landing(ctx)
	require.NoError(t, err)
	assert.Equal(t, NeedsLanguage, route)

	route, err = p.ChooseLanguage(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, NeedsCrop, route)
	assert.Equal(t, "hi", kv.values[models.KVOnboardingLanguage])
	assert.Equal(t, "hi", kv.values[models.KVUserLanguage])

	route, err = p.ChooseCrop(ctx, "Banana")
	require.NoError(t, err)
	assert.Equal(t, NeedsFirstReward, route)
	assert.Equal(t, "banana", kv.values[models.KVUserSelectedCrop])

	route, err = p.ClaimFirstReward(ctx)
	require.NoError(t, err)
	assert.Equal(t, NeedsAuth, route)

	route, err = p.Landing(ctx)
	require.NoError(t, err)
	assert.Equal(t, NeedsAuth, route)

	assert.Empty(t, m.items, "guests never mirror")
	assert.Equal(t, []string{"language=hi", "crop=banana", "first_reward=true"}, rec.steps)
}

func TestProgression_SignedInMirrorsProfile(t *testing.T) {
	ctx := context.Background()
	p, _, m := newProgression("u1")

	_, err := p.ChooseLanguage(ctx, "pa")
	require.NoError(t, err)
	route, err := p.ChooseCrop(ctx, "black pepper")
	require.NoError(t, err)
	assert.Equal(t, Home, route)

	require.Len(t, m.items, 2)
	assert.Equal(t, "language", m.items[0].TargetColumn)
	assert.Equal(t, "pa", m.items[0].Value)
	assert.Equal(t, "selected_crop", m.items[1].TargetColumn)
	assert.Equal(t, "black_pepper", m.items[1].Value)
	for _, it := range m.items {
		assert.Equal(t, "profiles", it.TargetTable)
		assert.Equal(t, "id", it.MatchColumn)
		assert.Equal(t, "u1", it.MatchValue)
	}
}

func TestProgression_MirrorFailureKeepsLocalFlag(t *testing.T) {
	ctx := context.Background()
	p, kv, m := newProgression("u1")
	m.err = errors.New("queue unavailable")

	_, err := p.ChooseLanguage(ctx, "ml")
	require.NoError(t, err)
	assert.Equal(t, "ml", kv.values[models.KVOnboardingLanguage])
}

func TestProgression_RejectsOutOfOrderSteps(t *testing.T) {
	ctx := context.Background()
	p, kv, _ := newProgression("")

	route, err := p.ChooseCrop(ctx, "rice")
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, NeedsLanguage, route)
	assert.NotContains(t, kv.values, models.KVOnboardingCrop)

	_, err = p.ClaimFirstReward(ctx)
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.NotContains(t, kv.values, models.KVOnboardingRewardClaimed)
}

func TestProgression_InvalidInput(t *testing.T) {
	ctx := context.Background()
	p, kv, _ := newProgression("")

	_, err := p.ChooseLanguage(ctx, "ta")
	assert.ErrorIs(t, err, i18n.ErrUnsupportedLanguage)
	assert.NotContains(t, kv.values, models.KVOnboardingLanguage)

	_, err = p.ChooseLanguage(ctx, "en")
	require.NoError(t, err)
	_, err = p.ChooseCrop(ctx, "wheat")
	assert.ErrorIs(t, err, ErrUnknownCrop)
}

func TestProgression_Reset(t *testing.T) {
	ctx := context.Background()
	p, kv, _ := newProgression("")
	_, err := p.ChooseLanguage(ctx, "hi")
	require.NoError(t, err)
	_, err = p.ChooseCrop(ctx, "rice")
	require.NoError(t, err)

	require.NoError(t, p.Reset(ctx))
	assert.Empty(t, kv.values)

	route, err := p.Landing(ctx)
	require.NoError(t, err)
	assert.Equal(t, NeedsLanguage, route)
}

func TestNextAfterLanguage(t *testing.T) {
	ctx := context.Background()

	p, _, _ := newProgression("u1")
	p.ProfileCrop = func(ctx context.Context) (string, bool, error) { return "rice", true, nil }
	assert.Equal(t, Home, p.NextAfterLanguage(ctx))

	p.ProfileCrop = func(ctx context.Context) (string, bool, error) { return "", false, nil }
	assert.Equal(t, NeedsCrop, p.NextAfterLanguage(ctx))

	p.ProfileCrop = func(ctx context.Context) (string, bool, error) { return "", false, errors.New("offline") }
	assert.Equal(t, NeedsCrop, p.NextAfterLanguage(ctx))

	guest, _, _ := newProgression("")
	guest.ProfileCrop = func(ctx context.Context) (string, bool, error) { return "rice", true, nil }
	assert.Equal(t, NeedsCrop, guest.NextAfterLanguage(ctx))
}

func TestRemoteProfileCrop(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodGet, "/rest/v1/profiles", http.StatusOK, []map[string]any{{"selected_crop": "coffee"}})

	crop, ok, err := RemoteProfileCrop(srv.SignedInClient(t, "u9"))(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "coffee", crop)

	reqs := srv.Requests(http.MethodGet, "/rest/v1/profiles")
	require.Len(t, reqs, 1)
	assert.Equal(t, "eq.u9", reqs[0].Query.Get("id"))
	assert.Equal(t, "selected_crop", reqs[0].Query.Get("select"))
}

func TestLookupCrop(t *testing.T) {
	c, err := LookupCrop(" CASHEW ")
	require.NoError(t, err)
	assert.Equal(t, "cashew", c.ID)

	_, err = LookupCrop("")
	assert.ErrorIs(t, err, ErrUnknownCrop)
}
