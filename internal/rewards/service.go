package rewards

import (
	"context"
	"fmt"
	"strconv"

	"github.com/atotto/clipboard"
	"golang.org/x/sync/errgroup"

	"github.com/asteroid-belt/kisan/internal/cachedquery"
	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// Key caches the vine for one user.
func Key(userID string) cachedquery.Key {
	if userID == "" {
		userID = "guest"
	}
	return cachedquery.NewKey("reward_root", 1, userID)
}

// KV is the local store holding the last known coins and crop.
type KV interface {
	GetKV(ctx context.Context, key string) (string, bool, error)
	SetKV(ctx context.Context, key, value string) error
}

// Service loads and unlocks rewards.
type Service struct {
	Client *remote.Client
	KV     KV
}

// NewService creates a reward service.
func NewService(c *remote.Client, kv KV) *Service {
	return &Service{Client: c, KV: kv}
}

// Cached returns the vine built from locally stored coins and crop only.
func (s *Service) Cached(ctx context.Context) Vine {
	var coins int
	if raw, ok, _ := s.KV.GetKV(ctx, models.KVUserPoints); ok {
		coins, _ = strconv.Atoi(raw)
	}
	crop, _, _ := s.KV.GetKV(ctx, models.KVUserSelectedCrop)
	return Build(nil, coins, crop)
}

// Load fetches coins, crop and unlocked rewards. Guests get the cached vine.
func (s *Service) Load(ctx context.Context) (Vine, error) {
	uid := s.Client.UserID()
	if uid == "" {
		return s.Cached(ctx), nil
	}

	var (
		profile struct {
			Coins        int     `json:"coins"`
			SelectedCrop *string `json:"selected_crop"`
		}
		rows []struct {
			RewardID int `json:"reward_id"`
		}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Client.From("profiles").Select("coins,selected_crop").Eq("id", uid).Single(gctx, &profile)
	})
	g.Go(func() error {
		return s.Client.From("user_rewards").Select("reward_id").Eq("user_id", uid).Execute(gctx, &rows)
	})
	if err := g.Wait(); err != nil {
		return Vine{}, fmt.Errorf("load rewards: %w", err)
	}

	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.RewardID
	}
	crop := ""
	if profile.SelectedCrop != nil {
		crop = *profile.SelectedCrop
	}
	s.remember(ctx, profile.Coins, crop)
	return Build(ids, profile.Coins, crop), nil
}

func (s *Service) remember(ctx context.Context, coins int, crop string) {
	if err := s.KV.SetKV(ctx, models.KVUserPoints, strconv.Itoa(coins)); err != nil {
		log.Warnf("cache coins: %v", err)
	}
	if crop == "" {
		return
	}
	if err := s.KV.SetKV(ctx, models.KVUserSelectedCrop, crop); err != nil {
		log.Warnf("cache crop: %v", err)
	}
}

// Unlock spends coins on node id. The unlocked state is applied locally
// first; if the backend rejects the unlock the local state is restored and
// the error returned with the original vine. A duplicate unlock is a success.
func (s *Service) Unlock(ctx context.Context, v Vine, id int) (Vine, error) {
	if err := v.CheckUnlock(id); err != nil {
		return v, err
	}
	uid := s.Client.UserID()
	if uid == "" {
		return v, remote.ErrNoSession
	}

	next := v.WithUnlocked(id)
	s.remember(ctx, next.Coins, "")

	_, err := s.Client.RPC(ctx, "unlock_reward", map[string]interface{}{
		"p_reward_id": id,
	}, nil, remote.WithIdempotencyKey(fmt.Sprintf("reward-%s-%d", uid, id)))
	if err != nil {
		s.remember(ctx, v.Coins, "")
		return v, fmt.Errorf("unlock reward %d: %w", id, err)
	}
	return next, nil
}

var writeClipboard = clipboard.WriteAll

// CopyCode puts the redeem code for node id on the clipboard and returns it.
func CopyCode(nodeID int, userID string) (string, error) {
	code := RedeemCode(nodeID, userID)
	if err := writeClipboard(code); err != nil {
		return code, fmt.Errorf("copy to clipboard: %w", err)
	}
	return code, nil
}
