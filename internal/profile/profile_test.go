package profile

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
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

type memMirror struct {
	items []models.MirrorItem
}

func (m *memMirror) Enqueue(ctx context.Context, item models.MirrorItem) error {
	m.items = append(m.items, item)
	return nil
}

func TestSustainabilityScore(t *testing.T) {
	tests := []struct {
		name                   string
		cl, tl, cq, tq, expect int
	}{
		{"nothing", 0, 0, 0, 0, 0},
		{"all lessons no quests", 10, 10, 0, 0, 60},
		{"all quests", 0, 10, 4, 4, 40},
		{"everything", 5, 5, 2, 2, 100},
		{"half and half", 5, 10, 1, 2, 50},
		{"rounds", 1, 3, 0, 5, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, SustainabilityScore(tt.cl, tt.tl, tt.cq, tt.tq))
		})
	}
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, BandLow, BandFor(0))
	assert.Equal(t, BandLow, BandFor(39))
	assert.Equal(t, BandGood, BandFor(40))
	assert.Equal(t, BandGood, BandFor(69))
	assert.Equal(t, BandExcellent, BandFor(70))
}

func countHandler(total string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "*/"+total)
		w.WriteHeader(http.StatusOK)
	}
}

func profileServer(t *testing.T, profile map[string]interface{}) *remotetest.Server {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodGet, "/rest/v1/profiles", http.StatusOK, profile)
	srv.On(http.MethodHead, "/rest/v1/lessons", countHandler("10"))
	srv.On(http.MethodHead, "/rest/v1/user_lessons", countHandler("5"))
	srv.On(http.MethodHead, "/rest/v1/quests", countHandler("4"))
	srv.On(http.MethodHead, "/rest/v1/user_quests", countHandler("2"))
	return srv
}

func TestFetch(t *testing.T) {
	srv := profileServer(t, map[string]interface{}{"id": "u1", "full_name": "Asha", "selected_crop": "rice", "coins": 4000})

	ov, err := NewService(srv.SignedInClient(t, "u1"), newMemKV(), nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Asha", ov.Profile.FullName)
	assert.Equal(t, Stats{CompletedLessons: 5, TotalLessons: 10, CompletedQuests: 2, TotalQuests: 4}, ov.Stats)
	assert.Equal(t, 50, ov.Score)
	assert.Equal(t, BandGood, ov.Band)

	reqs := srv.Requests(http.MethodHead, "/rest/v1/quests")
	require.Len(t, reqs, 1)
	assert.Equal(t, "(target_crop.is.null,target_crop.eq.rice)", reqs[0].Query.Get("or"))
	assert.Equal(t, "eq.u1", srv.Requests(http.MethodHead, "/rest/v1/user_lessons")[0].Query.Get("user_id"))
}

func TestFetch_NoCropCountsGeneralQuests(t *testing.T) {
	srv := profileServer(t, map[string]interface{}{"id": "u1"})

	_, err := NewService(srv.SignedInClient(t, "u1"), newMemKV(), nil).Fetch(context.Background())
	require.NoError(t, err)

	reqs := srv.Requests(http.MethodHead, "/rest/v1/quests")
	require.Len(t, reqs, 1)
	assert.Equal(t, "is.null", reqs[0].Query.Get("target_crop"))
	assert.Empty(t, reqs[0].Query.Get("or"))
}

func TestFetch_Guest(t *testing.T) {
	srv := remotetest.NewServer(t)
	_, err := NewService(srv.Client(), newMemKV(), nil).Fetch(context.Background())
	assert.ErrorIs(t, err, remote.ErrNoSession)
}

func TestAvatarObjectPath(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "u1/avatar_1700000000123.png", AvatarObjectPath("u1", "/tmp/me.PNG", at))
	assert.Equal(t, "u1/avatar_1700000000123.jpg", AvatarObjectPath("u1", "/tmp/me", at))
}

func writeAvatar(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG fake"), 0o644))
	return path
}

func fixClock(t *testing.T) {
	orig := now
	now = func() time.Time { return time.UnixMilli(1700000000000) }
	t.Cleanup(func() { now = orig })
}

func TestUploadAvatar(t *testing.T) {
	fixClock(t)
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodPost, "/storage/v1/object/avatars/u1/avatar_1700000000000.png", http.StatusOK, map[string]string{"Key": "x"})
	srv.Reply(http.MethodPatch, "/rest/v1/profiles", http.StatusOK, []interface{}{})
	c := srv.SignedInClient(t, "u1")

	res, err := NewService(c, newMemKV(), nil).UploadAvatar(context.Background(), writeAvatar(t))
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, c.PublicURL("avatars", "u1/avatar_1700000000000.png"), res.URL)

	up := srv.Requests(http.MethodPost, "/storage/v1/object/avatars/u1/avatar_1700000000000.png")
	require.Len(t, up, 1)
	assert.Equal(t, "image/png", up[0].Header.Get("Content-Type"))

	patch := srv.Requests(http.MethodPatch, "/rest/v1/profiles")
	require.Len(t, patch, 1)
	var body map[string]string
	patch[0].Decode(t, &body)
	assert.Equal(t, res.URL, body["avatar_url"])
	assert.Equal(t, "eq.u1", patch[0].Query.Get("id"))
}

func TestUploadAvatar_FallsBackToLocalFile(t *testing.T) {
	fixClock(t)
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodPatch, "/rest/v1/profiles", http.StatusOK, []interface{}{})
	file := writeAvatar(t)

	res, err := NewService(srv.SignedInClient(t, "u1"), newMemKV(), nil).UploadAvatar(context.Background(), file)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, "file://"+filepath.ToSlash(file), res.URL)
	assert.Len(t, srv.Requests(http.MethodPatch, "/rest/v1/profiles"), 1)
}

func TestUploadAvatar_Errors(t *testing.T) {
	srv := remotetest.NewServer(t)

	_, err := NewService(srv.Client(), newMemKV(), nil).UploadAvatar(context.Background(), "x.png")
	assert.ErrorIs(t, err, remote.ErrNoSession)

	_, err = NewService(srv.SignedInClient(t, "u1"), newMemKV(), nil).UploadAvatar(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestLookupAgriStack(t *testing.T) {
	link, err := LookupAgriStack(Registry, "  agri-002 ")
	require.NoError(t, err)
	assert.Equal(t, "AGRI-002", link.ID)
	assert.Equal(t, "Kerala", link.Record.Location)
	assert.False(t, link.Limited)

	link, err = LookupAgriStack(Registry, "AGRI-999")
	require.NoError(t, err)
	assert.True(t, link.Limited)
	assert.Equal(t, "Mixed", link.Record.PrimaryCrop)

	_, err = LookupAgriStack(Registry, "   ")
	assert.ErrorIs(t, err, ErrEmptyAgriStackID)
}

func TestLinkAgriStack(t *testing.T) {
	srv := remotetest.NewServer(t)
	kv := newMemKV()
	mirror := &memMirror{}

	link, err := NewService(srv.SignedInClient(t, "u1"), kv, mirror).LinkAgriStack(context.Background(), "agri-001")
	require.NoError(t, err)
	assert.Equal(t, "Punjab", link.Record.Location)
	assert.Equal(t, "AGRI-001", kv.values[models.KVAgriStackID])
	require.Len(t, mirror.items, 1)
	assert.Equal(t, "agristack_id", mirror.items[0].TargetColumn)
	assert.Equal(t, "u1", mirror.items[0].MatchValue)

	guestMirror := &memMirror{}
	_, err = NewService(srv.Client(), newMemKV(), guestMirror).LinkAgriStack(context.Background(), "AGRI-003")
	require.NoError(t, err)
	assert.Empty(t, guestMirror.items)
}
