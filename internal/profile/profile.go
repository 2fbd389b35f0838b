// Package profile reads the farmer profile with its sustainability score and
// handles avatar upload and AgriStack linking.
package profile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/asteroid-belt/kisan/internal/cachedquery"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// Key caches the profile overview of one user.
func Key(userID string) cachedquery.Key {
	if userID == "" {
		userID = "guest"
	}
	return cachedquery.NewKey("profile", 3, userID)
}

// Stats are the counts behind the sustainability score.
type Stats struct {
	CompletedLessons int `json:"completed_lessons"`
	TotalLessons     int `json:"total_lessons"`
	CompletedQuests  int `json:"completed_quests"`
	TotalQuests      int `json:"total_quests"`
}

// Overview is the profile screen payload.
type Overview struct {
	Profile models.Profile `json:"profile"`
	Stats   Stats          `json:"stats"`
	Score   int            `json:"sustainability_score"`
	Band    Band           `json:"band"`
}

// KV is the local store for the linked AgriStack id.
type KV interface {
	GetKV(ctx context.Context, key string) (string, bool, error)
	SetKV(ctx context.Context, key, value string) error
}

// Mirror queues best-effort remote copies of local writes.
type Mirror interface {
	Enqueue(ctx context.Context, item models.MirrorItem) error
}

// Service reads and edits the signed-in user's profile.
type Service struct {
	Client *remote.Client
	KV     KV
	Mirror Mirror
	// Registry resolves AgriStack ids; nil uses the built-in registry.
	Registry map[string]FarmRecord
}

// NewService creates a profile service.
func NewService(c *remote.Client, kv KV, m Mirror) *Service {
	return &Service{Client: c, KV: kv, Mirror: m}
}

// Fetch returns the profile and its sustainability score. Quests count
// toward the total when they target no crop or the user's selected crop.
func (s *Service) Fetch(ctx context.Context) (Overview, error) {
	uid := s.Client.UserID()
	if uid == "" {
		return Overview{}, remote.ErrNoSession
	}

	var p models.Profile
	if err := s.Client.From("profiles").Select("*").Eq("id", uid).Single(ctx, &p); err != nil {
		return Overview{}, fmt.Errorf("fetch profile: %w", err)
	}

	var st Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalLessons, err = s.Client.From("lessons").CountOnly(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.CompletedLessons, err = s.Client.From("user_lessons").Eq("user_id", uid).CountOnly(gctx)
		return err
	})
	g.Go(func() (err error) {
		q := s.Client.From("quests")
		if p.SelectedCrop != "" {
			q = q.Or("target_crop.is.null,target_crop.eq." + p.SelectedCrop)
		} else {
			q = q.IsNull("target_crop")
		}
		st.TotalQuests, err = q.CountOnly(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.CompletedQuests, err = s.Client.From("user_quests").Eq("user_id", uid).CountOnly(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("fetch profile stats: %w", err)
	}

	if p.AgriStackID == "" && s.KV != nil {
		if id, ok, _ := s.KV.GetKV(ctx, models.KVAgriStackID); ok {
			p.AgriStackID = id
		}
	}
	score := SustainabilityScore(st.CompletedLessons, st.TotalLessons, st.CompletedQuests, st.TotalQuests)
	return Overview{Profile: p, Stats: st, Score: score, Band: BandFor(score)}, nil
}
