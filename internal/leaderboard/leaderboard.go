// Package leaderboard reads the ranked leaderboard view.
//
// Scores are computed by the backend: final_score = coins x multiplier, where
// the multiplier grows with quest coins. The client only ranks and styles.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/asteroid-belt/kisan/internal/cachedquery"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// TopN is how many leaders are listed.
const TopN = 50

// Key caches the leaderboard as seen by one user.
func Key(userID string) cachedquery.Key {
	if userID == "" {
		userID = "guest"
	}
	return cachedquery.NewKey("leaderboard", 1, userID)
}

// Tier is the podium styling for the top three.
type Tier string

const (
	TierNone   Tier = ""
	TierGold   Tier = "gold"
	TierSilver Tier = "silver"
	TierBronze Tier = "bronze"
)

// TierFor returns the podium tier for a 1-based rank.
func TierFor(rank int) Tier {
	switch rank {
	case 1:
		return TierGold
	case 2:
		return TierSilver
	case 3:
		return TierBronze
	default:
		return TierNone
	}
}

// Ranked is a leaderboard row with its position.
type Ranked struct {
	models.LeaderboardEntry
	Rank int  `json:"rank"`
	Tier Tier `json:"tier,omitempty"`
	Me   bool `json:"is_user,omitempty"`
}

// DisplayName returns the row's name or the generic placeholder.
func (r Ranked) DisplayName() string {
	if r.FullName == "" {
		return "Farmer"
	}
	return r.FullName
}

// Standings is the leaderboard screen payload.
type Standings struct {
	Leaders []Ranked `json:"leaders"`
	// Me is the signed-in user's row, also when outside the top list.
	Me *Ranked `json:"current_user,omitempty"`
}

// Service reads the leaderboard.
type Service struct {
	Client *remote.Client
}

// NewService creates a leaderboard service.
func NewService(c *remote.Client) *Service {
	return &Service{Client: c}
}

// Fetch returns the top TopN by final score and the signed-in user's row.
func (s *Service) Fetch(ctx context.Context) (Standings, error) {
	var rows []models.LeaderboardEntry
	err := s.Client.From("leaderboard_view").Select("*").
		Order("final_score", false).Limit(TopN).Execute(ctx, &rows)
	if err != nil {
		return Standings{}, fmt.Errorf("fetch leaderboard: %w", err)
	}

	uid := s.Client.UserID()
	st := Standings{Leaders: Rank(rows, uid)}
	if uid == "" {
		return st, nil
	}
	for i := range st.Leaders {
		if st.Leaders[i].Me {
			me := st.Leaders[i]
			st.Me = &me
			return st, nil
		}
	}

	var mine models.LeaderboardEntry
	found, err := s.Client.From("leaderboard_view").Select("*").Eq("id", uid).MaybeSingle(ctx, &mine)
	if err != nil {
		return Standings{}, fmt.Errorf("fetch own standing: %w", err)
	}
	if !found {
		return st, nil
	}
	above, err := s.Client.From("leaderboard_view").Gt("final_score", mine.FinalScore).CountOnly(ctx)
	if err != nil {
		return Standings{}, fmt.Errorf("fetch own rank: %w", err)
	}
	st.Me = &Ranked{LeaderboardEntry: mine, Rank: above + 1, Me: true}
	return st, nil
}

// Rank numbers rows already sorted by score. Equal scores share a rank.
func Rank(rows []models.LeaderboardEntry, userID string) []Ranked {
	out := make([]Ranked, len(rows))
	for i, r := range rows {
		rank := i + 1
		if i > 0 && r.FinalScore == rows[i-1].FinalScore {
			rank = out[i-1].Rank
		}
		out[i] = Ranked{
			LeaderboardEntry: r,
			Rank:             rank,
			Tier:             TierFor(rank),
			Me:               userID != "" && r.ID == userID,
		}
	}
	return out
}
