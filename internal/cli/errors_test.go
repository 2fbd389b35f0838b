package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/learning"
	"github.com/asteroid-belt/kisan/internal/market"
	"github.com/asteroid-belt/kisan/internal/onboarding"
	"github.com/asteroid-belt/kisan/internal/profile"
	"github.com/asteroid-belt/kisan/internal/quests"
	"github.com/asteroid-belt/kisan/internal/remote"
	"github.com/asteroid-belt/kisan/internal/rewards"
	"github.com/asteroid-belt/kisan/internal/schemes"
	"github.com/asteroid-belt/kisan/internal/tui"
)

func TestClassifyError_WrappedSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"quest offline", fmt.Errorf("quest 3: %w", quests.ErrOffline), "network_error"},
		{"transport failure", fmt.Errorf("fetch lessons: %w", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("dial tcp: lookup x")}), "network_error"},
		{"backend unset", fmt.Errorf("leaderboard: %w", remote.ErrNotConfigured), "network_error"},
		{"deadline", fmt.Errorf("market: %w", context.DeadlineExceeded), "network_error"},
		{"no session", fmt.Errorf("unlock reward 2: %w", remote.ErrNoSession), "auth_error"},
		{"expired token", fmt.Errorf("profile: %w", &remote.Error{Status: 401, Message: "JWT expired"}), "auth_error"},
		{"row policy", &remote.Error{Status: 403, Code: "42501", Message: "permission denied for table user_rewards"}, "auth_error"},
		{"missing api key", fmt.Errorf("market update: %w", market.ErrMissingAPIKey), "config_error"},
		{"onboarding aborted", fmt.Errorf("%w; run `kisan start` to continue", tui.ErrAborted), "cancelled"},
		{"locked reward", fmt.Errorf("unlock 4: %w", rewards.ErrLocked), "reward_error"},
		{"short on coins", fmt.Errorf("unlock 4: %w", rewards.ErrInsufficientCoins), "reward_error"},
		{"already unlocked", rewards.ErrAlreadyUnlocked, "reward_error"},
		{"reading-only lesson", fmt.Errorf("lesson 9: %w", learning.ErrNoQuiz), "not_found_error"},
		{"scheme", fmt.Errorf("scheme pm-kisan: %w", schemes.ErrNotFound), "not_found_error"},
		{"reward id", fmt.Errorf("%w: 99", rewards.ErrUnknownReward), "not_found_error"},
		{"crop", fmt.Errorf("%w: %q", onboarding.ErrUnknownCrop, "kiwi"), "not_found_error"},
		{"single row", fmt.Errorf("quest 7: %w", &remote.Error{Status: 406, Code: remote.CodeNoRows, Message: "JSON object requested, multiple (or no) rows returned"}), "not_found_error"},
		{"wrong answer", fmt.Errorf("lesson 2: %w", learning.ErrWrongAnswer), "validation_error"},
		{"bad choice", fmt.Errorf("%w: 7", learning.ErrInvalidChoice), "validation_error"},
		{"agristack id", profile.ErrEmptyAgriStackID, "validation_error"},
		{"language", fmt.Errorf("%w: %q", i18n.ErrUnsupportedLanguage, "fr"), "validation_error"},
		{"step order", fmt.Errorf("crops: %w", onboarding.ErrOutOfOrder), "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}

// Sentinels are matched before message keywords, so a message that reads
// like another category still lands on its sentinel.
func TestClassifyError_SentinelBeatsKeywords(t *testing.T) {
	err := fmt.Errorf("reading config for quest 1: %w", quests.ErrOffline)
	assert.Equal(t, "network_error", classifyError(err))

	err = fmt.Errorf("invalid unlock: %w", rewards.ErrInsufficientCoins)
	assert.Equal(t, "reward_error", classifyError(err))
}

func TestClassifyError_MessageFallback(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"open config.yaml: no such file", "config_error"},
		{"open database: disk I/O error", "database_error"},
		{"sign in to save your progress", "auth_error"},
		{"mandi feed timeout after 10s", "network_error"},
		{"open /root/.cache/kisan: permission denied", "permission_error"},
		{"lesson not found", "not_found_error"},
		{`invalid id "abc"`, "validation_error"},
		{"invalid credentials: --email and --password are required when not running in a terminal", "validation_error"},
		{"voucher printer jammed", "unknown_error"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(errors.New(tt.msg)))
		})
	}
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("Mandi Feed TIMEOUT", "timeout"))
	assert.False(t, containsAny("Mandi Feed", "FEED"), "substrings are matched as given")
	assert.False(t, containsAny("coins", "xp", "rank"))
}

func TestTrackCLIError(t *testing.T) {
	assert.Nil(t, trackCLIError("lessons", nil))

	err := fmt.Errorf("quest 1: %w", quests.ErrOffline)
	assert.Same(t, err, trackCLIError("quests complete", err))
}

func TestRootCmd(t *testing.T) {
	assert.Equal(t, "kisan", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}
