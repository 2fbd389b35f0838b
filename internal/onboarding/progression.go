package onboarding

import (
	"context"
	"errors"
	"fmt"

	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// ErrOutOfOrder is returned when a step is attempted before the previous one.
var ErrOutOfOrder = errors.New("onboarding step out of order")

// KV is the local key-value store holding the flags. *db.DB implements it.
type KV interface {
	GetKV(ctx context.Context, key string) (string, bool, error)
	SetKV(ctx context.Context, key, value string) error
	DeleteKV(ctx context.Context, key string) error
}

// Mirror queues a best-effort copy of a local write to the backend.
type Mirror interface {
	Enqueue(ctx context.Context, item models.MirrorItem) error
}

// Session reports the signed-in user, "" for a guest. *remote.Client implements it.
type Session interface {
	UserID() string
}

// ProfileCropFunc reads the signed-in user's crop from their profile.
type ProfileCropFunc func(ctx context.Context) (crop string, ok bool, err error)

// RemoteProfileCrop reads profiles.selected_crop for the current session.
func RemoteProfileCrop(c *remote.Client) ProfileCropFunc {
	return func(ctx context.Context) (string, bool, error) {
		uid := c.UserID()
		if uid == "" {
			return "", false, nil
		}
		var row struct {
			SelectedCrop *string `json:"selected_crop"`
		}
		found, err := c.From("profiles").Select("selected_crop").Eq("id", uid).MaybeSingle(ctx, &row)
		if err != nil || !found || row.SelectedCrop == nil || *row.SelectedCrop == "" {
			return "", false, err
		}
		return *row.SelectedCrop, true, nil
	}
}

// StepRecorder observes completed steps (telemetry).
type StepRecorder interface {
	TrackOnboardingStep(step, value string)
}

// Progression performs the onboarding steps. Each step sets its local flag
// first; the remote mirror is queued afterwards and can never block or undo it.
type Progression struct {
	KV          KV
	Languages   *i18n.Resolver
	Session     Session
	Mirror      Mirror
	ProfileCrop ProfileCropFunc
	Recorder    StepRecorder
}

// LoadFlags reads the onboarding flags.
func (p *Progression) LoadFlags(ctx context.Context) (Flags, error) {
	var f Flags
	var err error
	if f.Language, _, err = p.KV.GetKV(ctx, models.KVOnboardingLanguage); err != nil {
		return Flags{}, fmt.Errorf("read language flag: %w", err)
	}
	if f.Crop, _, err = p.KV.GetKV(ctx, models.KVOnboardingCrop); err != nil {
		return Flags{}, fmt.Errorf("read crop flag: %w", err)
	}
	claimed, _, err := p.KV.GetKV(ctx, models.KVOnboardingRewardClaimed)
	if err != nil {
		return Flags{}, fmt.Errorf("read reward flag: %w", err)
	}
	f.RewardClaimed = claimed == "true"
	return f, nil
}

func (p *Progression) userID() string {
	if p.Session == nil {
		return ""
	}
	return p.Session.UserID()
}

// Landing decides the landing route from the stored flags and session.
func (p *Progression) Landing(ctx context.Context) (Route, error) {
	flags, err := p.LoadFlags(ctx)
	if err != nil {
		return NeedsLanguage, err
	}
	return DecideLandingRoute(flags, p.userID() != ""), nil
}

// ChooseLanguage records the language step and returns where to go next.
func (p *Progression) ChooseLanguage(ctx context.Context, code string) (Route, error) {
	if err := p.Languages.SetLanguage(ctx, code); err != nil {
		return NeedsLanguage, err
	}
	lang := p.Languages.Language()
	if err := p.KV.SetKV(ctx, models.KVOnboardingLanguage, lang); err != nil {
		return NeedsLanguage, fmt.Errorf("set language flag: %w", err)
	}
	p.record("language", lang)
	p.mirror(ctx, "language", lang)
	return p.NextAfterLanguage(ctx), nil
}

// NextAfterLanguage sends signed-in users with a crop on their profile
// straight home, everyone else to the crop step.
func (p *Progression) NextAfterLanguage(ctx context.Context) Route {
	if p.userID() == "" || p.ProfileCrop == nil {
		return NeedsCrop
	}
	crop, ok, err := p.ProfileCrop(ctx)
	if err != nil {
		log.Debugf("profile crop unavailable: %v", err)
		return NeedsCrop
	}
	if ok && crop != "" {
		return Home
	}
	return NeedsCrop
}

// ChooseCrop records the crop step and returns where to go next.
func (p *Progression) ChooseCrop(ctx context.Context, cropID string) (Route, error) {
	crop, err := LookupCrop(cropID)
	if err != nil {
		return NeedsCrop, err
	}
	flags, err := p.LoadFlags(ctx)
	if err != nil {
		return NeedsCrop, err
	}
	if flags.Language == "" {
		return NeedsLanguage, fmt.Errorf("%w: choose a language first", ErrOutOfOrder)
	}

	if err := p.KV.SetKV(ctx, models.KVOnboardingCrop, crop.ID); err != nil {
		return NeedsCrop, fmt.Errorf("set crop flag: %w", err)
	}
	if err := p.KV.SetKV(ctx, models.KVUserSelectedCrop, crop.ID); err != nil {
		log.Warnf("cache selected crop: %v", err)
	}
	p.record("crop", crop.ID)
	p.mirror(ctx, "selected_crop", crop.ID)

	flags.Crop = crop.ID
	return DecideLandingRoute(flags, p.userID() != ""), nil
}

// ClaimFirstReward records the first-reward step and returns where to go next.
func (p *Progression) ClaimFirstReward(ctx context.Context) (Route, error) {
	flags, err := p.LoadFlags(ctx)
	if err != nil {
		return NeedsFirstReward, err
	}
	if flags.Crop == "" {
		return DecideLandingRoute(flags, false), fmt.Errorf("%w: choose a crop first", ErrOutOfOrder)
	}
	if err := p.KV.SetKV(ctx, models.KVOnboardingRewardClaimed, "true"); err != nil {
		return NeedsFirstReward, fmt.Errorf("set reward flag: %w", err)
	}
	p.record("first_reward", "true")

	flags.RewardClaimed = true
	return DecideLandingRoute(flags, p.userID() != ""), nil
}

// Reset clears every onboarding flag and the stored language, as on a fresh
// install. The session is left alone.
func (p *Progression) Reset(ctx context.Context) error {
	for _, key := range []string{
		models.KVOnboardingLanguage,
		models.KVOnboardingCrop,
		models.KVOnboardingRewardClaimed,
		models.KVUserLanguage,
		models.KVUserSelectedCrop,
	} {
		if err := p.KV.DeleteKV(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

// mirror queues profiles.<column> = value for the signed-in user. Failures are
// logged only: the local flag is already set.
func (p *Progression) mirror(ctx context.Context, column, value string) {
	uid := p.userID()
	if uid == "" || p.Mirror == nil {
		return
	}
	err := p.Mirror.Enqueue(ctx, models.MirrorItem{
		TargetTable:  "profiles",
		TargetColumn: column,
		Value:        value,
		MatchColumn:  "id",
		MatchValue:   uid,
	})
	if err != nil {
		log.Warnf("queue profile %s mirror: %v", column, err)
	}
}

func (p *Progression) record(step, value string) {
	if p.Recorder != nil {
		p.Recorder.TrackOnboardingStep(step, value)
	}
}
