// Package quests serves the quest board and quest completion.
package quests

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/asteroid-belt/kisan/internal/cachedquery"
	"github.com/asteroid-belt/kisan/internal/learning"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// Reward is the quest coins advertised for every quest. The backend decides
// what is actually credited.
const Reward = 1000

// ErrOffline is returned when a quest cannot be completed without the backend.
var ErrOffline = errors.New("connect to the internet to complete quests")

// BoardKey caches the quest board for one user.
func BoardKey(userID string) cachedquery.Key {
	if userID == "" {
		userID = "guest"
	}
	return cachedquery.NewKey("quests_page", 5, userID)
}

// QuestKey caches a single quest with its quiz.
func QuestKey(questID int) cachedquery.Key {
	return cachedquery.NewKey("quest_quiz", 1, strconv.Itoa(questID))
}

// Board is the quest screen payload.
type Board struct {
	Quests     []models.Quest `json:"quests"`
	Rank       string         `json:"user_rank"`
	QuestCoins int            `json:"user_coins"`
}

// Service reads and completes quests.
type Service struct {
	Client *remote.Client
}

// NewService creates a quest service.
func NewService(c *remote.Client) *Service {
	return &Service{Client: c}
}

// FetchBoard returns all quests with the user's completion flags, quest coins
// and leaderboard rank. Guests get rank "-".
func (s *Service) FetchBoard(ctx context.Context) (Board, error) {
	var quests []models.Quest
	if err := s.Client.From("quests").Select("*").Order("id", true).Execute(ctx, &quests); err != nil {
		return Board{}, fmt.Errorf("fetch quests: %w", err)
	}
	board := Board{Rank: "-"}

	uid := s.Client.UserID()
	completed := map[int]bool{}
	if uid != "" {
		var (
			done  []struct{ QuestID int `json:"quest_id"` }
			score struct {
				QuestCoins int     `json:"quest_coins"`
				FinalScore float64 `json:"final_score"`
			}
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return s.Client.From("user_quests").Select("quest_id").Eq("user_id", uid).Execute(gctx, &done)
		})
		g.Go(func() error {
			_, err := s.Client.From("leaderboard_view").Select("quest_coins,final_score").Eq("id", uid).MaybeSingle(gctx, &score)
			return err
		})
		if err := g.Wait(); err != nil {
			return Board{}, fmt.Errorf("fetch quest progress: %w", err)
		}
		for _, d := range done {
			completed[d.QuestID] = true
		}

		above, err := s.Client.From("leaderboard_view").Gt("final_score", score.FinalScore).CountOnly(ctx)
		if err != nil {
			return Board{}, fmt.Errorf("fetch rank: %w", err)
		}
		board.Rank = strconv.Itoa(above + 1)
		board.QuestCoins = score.QuestCoins
	}

	for i := range quests {
		quests[i].XPReward = Reward
		quests[i].IsCompleted = completed[quests[i].ID]
	}
	board.Quests = quests
	return board, nil
}

// FetchQuest returns one quest with its quiz.
func (s *Service) FetchQuest(ctx context.Context, questID int) (models.Quest, error) {
	var q models.Quest
	if err := s.Client.From("quests").Select("*").Eq("id", questID).Single(ctx, &q); err != nil {
		return models.Quest{}, fmt.Errorf("fetch quest %d: %w", questID, err)
	}
	q.XPReward = Reward
	return q, nil
}

// Completion is the outcome of answering a quest quiz.
type Completion struct {
	QuestID     int
	Correct     bool
	Explanation string
	// Coins credited by this call; zero for duplicates, guests and wrong answers.
	Coins     int
	Duplicate bool
	Guest     bool
}

// CompleteQuest checks answer against the quest quiz and, when correct,
// records the quest and asks the backend to credit its reward once. It refuses to run offline. A
// wrong answer returns learning.ErrWrongAnswer alongside the completion.
func (s *Service) CompleteQuest(ctx context.Context, questID int, answer string) (Completion, error) {
	c := Completion{QuestID: questID}
	q, err := s.FetchQuest(ctx, questID)
	if err != nil {
		if remote.IsNetwork(err) {
			return c, ErrOffline
		}
		return c, err
	}
	c.Explanation = q.QuizExplanation

	choice, err := learning.ResolveChoice(q.QuizOptions, answer)
	if err != nil {
		return c, err
	}
	if choice != q.CorrectAnswer {
		return c, learning.ErrWrongAnswer
	}
	c.Correct = true

	uid := s.Client.UserID()
	if uid == "" {
		c.Guest = true
		return c, nil
	}

	if _, err := s.Client.Insert(ctx, "user_quests", map[string]interface{}{
		"user_id":  uid,
		"quest_id": questID,
	}, remote.WithIdempotencyKey(fmt.Sprintf("quest-%s-%d", uid, questID))); err != nil {
		if remote.IsNetwork(err) {
			return c, ErrOffline
		}
		return c, fmt.Errorf("complete quest %d: %w", questID, err)
	}

	// A duplicate claim row still goes to the credit procedure: an earlier
	// attempt may have recorded the quest and failed before crediting.
	var cr credit
	if _, err := s.Client.RPC(ctx, "complete_quest", map[string]interface{}{
		"p_quest_id": questID,
	}, &cr, remote.WithIdempotencyKey(fmt.Sprintf("quest-credit-%s-%d", uid, questID))); err != nil {
		if remote.IsNetwork(err) {
			return c, ErrOffline
		}
		return c, fmt.Errorf("credit quest %d: %w", questID, err)
	}
	if !cr.Credited {
		c.Duplicate = true
		return c, nil
	}
	c.Coins = cr.Coins
	return c, nil
}

// credit is the reply of the complete_quest procedure.
type credit struct {
	Credited bool `json:"credited"`
	Coins    int  `json:"coins"`
}
