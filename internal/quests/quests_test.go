package quests

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/kisan/internal/learning"
	"github.com/asteroid-belt/kisan/internal/remote"
	"github.com/asteroid-belt/kisan/internal/remote/remotetest"
)

func questRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": 1, "title": "Mulch Master", "target_crop": nil, "quiz_question": "Best mulch?", "quiz_options": []string{"Leaves", "Plastic"}, "correct_answer": "Leaves", "quiz_explanation": "Leaves feed the soil", "xp_reward": 50},
		{"id": 2, "title": "Rice Water", "target_crop": "rice", "quiz_question": "AWD saves?", "quiz_options": []string{"Water", "Seed"}, "correct_answer": "Water"},
	}
}

func rankServer(t *testing.T, above string) *remotetest.Server {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodGet, "/rest/v1/quests", http.StatusOK, questRows())
	srv.Reply(http.MethodGet, "/rest/v1/user_quests", http.StatusOK, []map[string]int{{"quest_id": 2}})
	srv.Reply(http.MethodGet, "/rest/v1/leaderboard_view", http.StatusOK, []map[string]interface{}{{"quest_coins": 2000, "final_score": 4500.5}})
	srv.On(http.MethodHead, "/rest/v1/leaderboard_view", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "*/"+above)
		w.WriteHeader(http.StatusOK)
	})
	return srv
}

func TestFetchBoard_SignedIn(t *testing.T) {
	srv := rankServer(t, "4")

	board, err := NewService(srv.SignedInClient(t, "u1")).FetchBoard(context.Background())
	require.NoError(t, err)

	require.Len(t, board.Quests, 2)
	assert.False(t, board.Quests[0].IsCompleted)
	assert.True(t, board.Quests[1].IsCompleted)
	for _, q := range board.Quests {
		assert.Equal(t, Reward, q.XPReward)
	}
	assert.Equal(t, "5", board.Rank)
	assert.Equal(t, 2000, board.QuestCoins)

	head := srv.Requests(http.MethodHead, "/rest/v1/leaderboard_view")
	require.Len(t, head, 1)
	assert.Equal(t, "gt.4500.5", head[0].Query.Get("final_score"))
	assert.Equal(t, "count=exact", head[0].Header.Get("Prefer"))
}

func TestFetchBoard_Guest(t *testing.T) {
	srv := rankServer(t, "0")

	board, err := NewService(srv.Client()).FetchBoard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "-", board.Rank)
	assert.Zero(t, board.QuestCoins)
	assert.Empty(t, srv.Requests(http.MethodGet, "/rest/v1/user_quests"))
	require.NotNil(t, board.Quests[1].TargetCrop)
	assert.Equal(t, "rice", *board.Quests[1].TargetCrop)
	assert.Nil(t, board.Quests[0].TargetCrop)
}

func questServer(t *testing.T) *remotetest.Server {
	srv := remotetest.NewServer(t)
	srv.Reply(http.MethodGet, "/rest/v1/quests", http.StatusOK, questRows()[0])
	return srv
}

func TestCompleteQuest_CreditsOnce(t *testing.T) {
	srv := questServer(t)
	srv.Reply(http.MethodPost, "/rest/v1/user_quests", http.StatusCreated, []interface{}{})
	srv.Reply(http.MethodPost, "/rest/v1/rpc/complete_quest", http.StatusOK, map[string]interface{}{"credited": true, "coins": 1000})

	c, err := NewService(srv.SignedInClient(t, "u1")).CompleteQuest(context.Background(), 1, "leaves")
	require.NoError(t, err)
	assert.True(t, c.Correct)
	assert.Equal(t, 1000, c.Coins)
	assert.Equal(t, "Leaves feed the soil", c.Explanation)

	ins := srv.Requests(http.MethodPost, "/rest/v1/user_quests")
	require.Len(t, ins, 1)
	assert.Equal(t, "quest-u1-1", ins[0].Header.Get(remote.IdempotencyHeader))

	rpc := srv.Requests(http.MethodPost, "/rest/v1/rpc/complete_quest")
	require.Len(t, rpc, 1)
	assert.Equal(t, "quest-credit-u1-1", rpc[0].Header.Get(remote.IdempotencyHeader))
	var params map[string]int
	rpc[0].Decode(t, &params)
	assert.Equal(t, map[string]int{"p_quest_id": 1}, params)
}

// A claim row rejected as a duplicate key still reaches the credit procedure,
// which reports whether anything was paid.
func TestCompleteQuest_DuplicateKeyProceeds(t *testing.T) {
	srv := questServer(t)
	srv.Fail(http.MethodPost, "/rest/v1/user_quests", http.StatusConflict, remote.CodeUniqueViolation, "duplicate key value violates unique constraint \"user_quests_pkey\"")
	srv.Reply(http.MethodPost, "/rest/v1/rpc/complete_quest", http.StatusOK, map[string]interface{}{"credited": false})

	c, err := NewService(srv.SignedInClient(t, "u1")).CompleteQuest(context.Background(), 1, "1")
	require.NoError(t, err)
	assert.True(t, c.Correct)
	assert.True(t, c.Duplicate)
	assert.Zero(t, c.Coins)
	assert.Len(t, srv.Requests(http.MethodPost, "/rest/v1/rpc/complete_quest"), 1)
}

func TestCompleteQuest_RetryAfterFailedCreditPays(t *testing.T) {
	srv := questServer(t)
	var inserts int32
	srv.On(http.MethodPost, "/rest/v1/user_quests", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&inserts, 1) == 1 {
			remotetest.WriteJSON(w, http.StatusCreated, []interface{}{})
			return
		}
		remotetest.WriteJSON(w, http.StatusConflict, map[string]string{"code": remote.CodeUniqueViolation, "message": "duplicate key value violates unique constraint"})
	})
	var credits int32
	srv.On(http.MethodPost, "/rest/v1/rpc/complete_quest", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&credits, 1) == 1 {
			remotetest.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "upstream unavailable"})
			return
		}
		remotetest.WriteJSON(w, http.StatusOK, map[string]interface{}{"credited": true, "coins": 1000})
	})
	svc := NewService(srv.SignedInClient(t, "u1"))

	_, err := svc.CompleteQuest(context.Background(), 1, "Leaves")
	require.Error(t, err)

	c, err := svc.CompleteQuest(context.Background(), 1, "Leaves")
	require.NoError(t, err)
	assert.False(t, c.Duplicate)
	assert.Equal(t, 1000, c.Coins)
	assert.EqualValues(t, 2, atomic.LoadInt32(&credits))
}

func TestCompleteQuest_WrongAnswer(t *testing.T) {
	srv := questServer(t)

	c, err := NewService(srv.SignedInClient(t, "u1")).CompleteQuest(context.Background(), 1, "Plastic")
	assert.ErrorIs(t, err, learning.ErrWrongAnswer)
	assert.False(t, c.Correct)
	assert.Empty(t, srv.Requests(http.MethodPost, "/rest/v1/user_quests"))
}

func TestCompleteQuest_Guest(t *testing.T) {
	srv := questServer(t)

	c, err := NewService(srv.Client()).CompleteQuest(context.Background(), 1, "Leaves")
	require.NoError(t, err)
	assert.True(t, c.Guest)
	assert.True(t, c.Correct)
	assert.Empty(t, srv.Requests(http.MethodPost, "/rest/v1/user_quests"))
}

func TestCompleteQuest_RefusesOffline(t *testing.T) {
	offline := remote.New(remote.Options{})
	_, err := NewService(offline).CompleteQuest(context.Background(), 1, "Leaves")
	assert.ErrorIs(t, err, ErrOffline)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "quests_page_v5_guest", string(BoardKey("")))
	assert.Equal(t, "quest_quiz_v1_3", string(QuestKey(3)))
}
