package remote_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/kisan/internal/remote"
	"github.com/asteroid-belt/kisan/internal/remote/remotetest"
)

type lessonRow struct {
	ID       int    `json:"id"`
	Sequence int    `json:"sequence"`
	TitleEn  string `json:"title_en"`
}

func TestQuery_ExecuteBuildsFilters(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodGet, "/rest/v1/lessons", http.StatusOK, []lessonRow{
		{ID: 1, Sequence: 1, TitleEn: "Soil"},
		{ID: 2, Sequence: 2, TitleEn: "Water"},
	})
	c := srv.Client()

	var rows []lessonRow
	err := c.From("lessons").
		Select("id, sequence, title_en").
		Gte("sequence", 1).
		In("theme", "soil", "water, rain").
		Order("sequence", true).
		Limit(10).
		Execute(context.Background(), &rows)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	reqs := srv.Requests(http.MethodGet, "/rest/v1/lessons")
	require.Len(t, reqs, 1)
	q := reqs[0].Query
	assert.Equal(t, "id, sequence, title_en", q.Get("select"))
	assert.Equal(t, "gte.1", q.Get("sequence"))
	assert.Equal(t, `in.(soil,"water, rain")`, q.Get("theme"))
	assert.Equal(t, "sequence.asc", q.Get("order"))
	assert.Equal(t, "10", q.Get("limit"))
	assert.Equal(t, "anon-key", reqs[0].Header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", reqs[0].Header.Get("Authorization"))
}

func TestQuery_OrAndIsNull(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.On(http.MethodHead, "/rest/v1/quests", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "*/7")
		w.WriteHeader(http.StatusOK)
	})
	c := srv.Client()

	n, err := c.From("quests").Or("target_crop.is.null,target_crop.eq.rice").CountOnly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = c.From("quests").IsNull("target_crop").CountOnly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	reqs := srv.Requests(http.MethodHead, "/rest/v1/quests")
	require.Len(t, reqs, 2)
	assert.Equal(t, "(target_crop.is.null,target_crop.eq.rice)", reqs[0].Query.Get("or"))
	assert.Equal(t, "count=exact", reqs[0].Header.Get("Prefer"))
	assert.Equal(t, "is.null", reqs[1].Query.Get("target_crop"))
}

func TestQuery_MaybeSingle(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodGet, "/rest/v1/leaderboard_view", http.StatusOK, []map[string]interface{}{})
	c := srv.Client()

	var row map[string]interface{}
	found, err := c.From("leaderboard_view").Eq("id", "u1").MaybeSingle(context.Background(), &row)
	require.NoError(t, err)
	assert.False(t, found)

	srv.Reply(http.MethodGet, "/rest/v1/leaderboard_view", http.StatusOK, []map[string]interface{}{{"id": "u1"}})
	found, err = c.From("leaderboard_view").Eq("id", "u1").MaybeSingle(context.Background(), &row)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "u1", row["id"])
}

func TestQuery_SingleNoRows(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Fail(http.MethodGet, "/rest/v1/profiles", http.StatusNotAcceptable, remote.CodeNoRows, "JSON object requested, multiple (or no) rows returned")
	c := srv.Client()

	var row map[string]interface{}
	err := c.From("profiles").Eq("id", "nobody").Single(context.Background(), &row)
	require.Error(t, err)
	assert.True(t, remote.IsNoRows(err))
	assert.False(t, remote.IsNetwork(err))

	reqs := srv.Requests(http.MethodGet, "/rest/v1/profiles")
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/vnd.pgrst.object+json", reqs[0].Header.Get("Accept"))
}

func TestErrorDecoding(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodPost, "/rest/v1/user_quests", http.StatusConflict, map[string]string{
		"code":    "23505",
		"message": `duplicate key value violates unique constraint "user_quests_pkey"`,
		"details": "Key (user_id, quest_id)=(u1, 3) already exists.",
	})
	c := srv.Client()

	_, err := c.Insert(context.Background(), "user_quests", map[string]interface{}{"user_id": "u1", "quest_id": 3})
	require.Error(t, err)

	var remoteErr *remote.Error
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusConflict, remoteErr.Status)
	assert.Equal(t, remote.CodeUniqueViolation, remoteErr.Code)
	assert.Contains(t, remoteErr.Details, "already exists")
	assert.True(t, remote.IsDuplicate(err))
}

func TestInsert_IdempotencyKeyTurnsDuplicateIntoSuccess(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Fail(http.MethodPost, "/rest/v1/user_rewards", http.StatusConflict, remote.CodeUniqueViolation, "duplicate key")
	c := srv.Client()

	res, err := c.Insert(context.Background(), "user_rewards",
		map[string]interface{}{"user_id": "u1", "reward_id": 1},
		remote.WithIdempotencyKey("reward-u1-1"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	reqs := srv.Requests(http.MethodPost, "/rest/v1/user_rewards")
	require.Len(t, reqs, 1)
	assert.Equal(t, "reward-u1-1", reqs[0].Header.Get(remote.IdempotencyHeader))
}

func TestInsert_OtherErrorsStillFail(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Fail(http.MethodPost, "/rest/v1/user_rewards", http.StatusBadRequest, "P0001", "insufficient coins")
	c := srv.Client()

	_, err := c.Insert(context.Background(), "user_rewards", map[string]int{"reward_id": 1}, remote.WithIdempotencyKey("k"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient coins")
}

func TestUpdate_RequiresFilter(t *testing.T) {
	c := remotetest.NewServer(t).Client()

	_, err := c.Update(context.Background(), "profiles", map[string]string{"language": "hi"}, nil)
	assert.Error(t, err)
}

func TestUpdateAndUpsert(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodPatch, "/rest/v1/profiles", http.StatusNoContent, nil)
	srv.Reply(http.MethodPost, "/rest/v1/user_lessons", http.StatusCreated, nil)
	c := srv.Client()
	ctx := context.Background()

	_, err := c.Update(ctx, "profiles", map[string]string{"language": "hi"}, []remote.Filter{remote.Eq("id", "u1")})
	require.NoError(t, err)
	_, err = c.Upsert(ctx, "user_lessons", map[string]interface{}{"user_id": "u1", "lesson_id": 4}, "user_id,lesson_id")
	require.NoError(t, err)

	patch := srv.Requests(http.MethodPatch, "/rest/v1/profiles")
	require.Len(t, patch, 1)
	assert.Equal(t, "eq.u1", patch[0].Query.Get("id"))

	upsert := srv.Requests(http.MethodPost, "/rest/v1/user_lessons")
	require.Len(t, upsert, 1)
	assert.Equal(t, "user_id,lesson_id", upsert[0].Query.Get("on_conflict"))
	assert.Contains(t, upsert[0].Header.Values("Prefer"), "resolution=merge-duplicates")
}

func TestRPC(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodPost, "/rest/v1/rpc/complete_quest", http.StatusOK, map[string]int{"quest_coins": 2000})
	c := srv.Client()

	var out struct {
		QuestCoins int `json:"quest_coins"`
	}
	_, err := c.RPC(context.Background(), "complete_quest", map[string]int{"quest_id": 2}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2000, out.QuestCoins)

	reqs := srv.Requests(http.MethodPost, "/rest/v1/rpc/complete_quest")
	require.Len(t, reqs, 1)
	var params map[string]int
	reqs[0].Decode(t, &params)
	assert.Equal(t, 2, params["quest_id"])
}

func TestStorage_UploadAndPublicURL(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodPost, "/storage/v1/object/avatars/u1/avatar_1.png", http.StatusOK, map[string]string{"Key": "avatars/u1/avatar_1.png"})
	c := srv.SignedInClient(t, "u1")

	err := c.Upload(context.Background(), "avatars", "u1/avatar_1.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	reqs := srv.Requests(http.MethodPost, "/storage/v1/object/avatars/u1/avatar_1.png")
	require.Len(t, reqs, 1)
	assert.Equal(t, "image/png", reqs[0].Header.Get("Content-Type"))
	assert.Equal(t, "png-bytes", string(reqs[0].Body))
	assert.Equal(t, "Bearer token-u1", reqs[0].Header.Get("Authorization"))

	assert.Equal(t, srv.URL+"/storage/v1/object/public/avatars/u1/avatar_1.png", c.PublicURL("avatars", "u1/avatar_1.png"))
}

func TestNotConfiguredIsNetwork(t *testing.T) {
	c := remote.New(remote.Options{})

	var rows []lessonRow
	err := c.From("lessons").Execute(context.Background(), &rows)
	require.Error(t, err)
	assert.True(t, remote.IsNetwork(err))
	assert.False(t, c.Configured())
}

func TestUnreachableIsNetwork(t *testing.T) {
	srv := remotetest.NewServer(t)
	c := srv.Client()
	srv.Close()

	var rows []lessonRow
	err := c.From("lessons").Execute(context.Background(), &rows)
	require.Error(t, err)
	assert.True(t, remote.IsNetwork(err))
}

func TestContextTimeoutIsNetwork(t *testing.T) {
	srv := remotetest.NewServer(t)
	srv.On(http.MethodGet, "/rest/v1/lessons", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = io.WriteString(w, "[]")
	})
	c := srv.Client()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var rows []lessonRow
	err := c.From("lessons").Execute(ctx, &rows)
	require.Error(t, err)
	assert.True(t, remote.IsNetwork(err))
}
