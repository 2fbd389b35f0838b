// Package cli provides the command-line interface for Kisan.
package cli

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/learning"
	"github.com/asteroid-belt/kisan/internal/market"
	"github.com/asteroid-belt/kisan/internal/onboarding"
	"github.com/asteroid-belt/kisan/internal/profile"
	"github.com/asteroid-belt/kisan/internal/quests"
	"github.com/asteroid-belt/kisan/internal/remote"
	"github.com/asteroid-belt/kisan/internal/rewards"
	"github.com/asteroid-belt/kisan/internal/schemes"
	"github.com/asteroid-belt/kisan/internal/telemetry"
	"github.com/asteroid-belt/kisan/internal/tui"
	"github.com/asteroid-belt/kisan/pkg/version"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var telemetryClient telemetry.Client = telemetry.NewNoop()

var commandStartTime time.Time

// refreshFlag forces every cached read to wait for a fresh fetch.
var refreshFlag bool

var rootCmd = &cobra.Command{
	Use:   "kisan",
	Short: "Learn, earn and track prices for your farm",
	Long: `Learn, earn and track prices for your farm

An offline-first companion for farmers: short lessons with quizzes,
crop quests, a coin leaderboard, reward vouchers, live mandi prices
and government scheme guides, in your own language.

Run without arguments to continue where you left off. A first run
walks through choosing a language and a crop.

Telemetry:
  Telemetry is enabled by default, always anonymous, and will never track
  personal information or IP addresses.

  Opt-out with:
  	KISAN_TELEMETRY_TRACKING_ENABLED=false`,
	SilenceUsage: true,
	RunE:         runLanding,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commandStartTime = time.Now()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "kisan" {
			durationMs := time.Since(commandStartTime).Milliseconds()
			hasFlags := cmd.Flags().NFlag() > 0
			telemetryClient.TrackCLICommandExecuted(cmd.CommandPath(), hasFlags, durationMs)
		}

		if cmd.Flags().Changed("help") {
			telemetryClient.TrackCLIHelpViewed(cmd.Name(), os.Args[1:])
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&refreshFlag, "refresh", false, "Wait for fresh data instead of showing saved data")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(languageCmd)
	rootCmd.AddCommand(cropCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(lessonsCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(questsCmd)
	rootCmd.AddCommand(questCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(rewardsCmd)
	rootCmd.AddCommand(marketCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(schemesCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context, tc telemetry.Client) error {
	if tc == nil {
		tc = telemetry.New(nil)
	}
	telemetryClient = tc

	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Short()),
		fang.WithCommit(version.Commit),
	)

	if rootCmd.CalledAs() != "" && rootCmd.CalledAs() != "kisan" {
		durationMs := time.Since(commandStartTime).Milliseconds()
		telemetryClient.TrackAppExited("cli", durationMs, 1)
	}

	return err
}

// trackCLIError wraps an error with telemetry tracking.
// Call this before returning errors from CLI commands.
func trackCLIError(cmdName string, err error) error {
	if err == nil {
		return nil
	}
	errorType := classifyError(err)
	telemetryClient.TrackCLIError(cmdName, errorType)
	return err
}

// classifyError determines the error type for telemetry. Known sentinels
// and backend errors are matched through the wrap chain; anything else falls
// back to keywords in the message.
func classifyError(err error) string {
	switch {
	case errors.Is(err, quests.ErrOffline), remote.IsNetwork(err):
		return "network_error"
	case errors.Is(err, remote.ErrNoSession), remote.IsUnauthorized(err):
		return "auth_error"
	case errors.Is(err, market.ErrMissingAPIKey):
		return "config_error"
	case errors.Is(err, tui.ErrAborted):
		return "cancelled"
	case errors.Is(err, rewards.ErrLocked),
		errors.Is(err, rewards.ErrInsufficientCoins),
		errors.Is(err, rewards.ErrAlreadyUnlocked):
		return "reward_error"
	case errors.Is(err, learning.ErrNoQuiz),
		errors.Is(err, schemes.ErrNotFound),
		errors.Is(err, rewards.ErrUnknownReward),
		errors.Is(err, onboarding.ErrUnknownCrop),
		remote.IsNoRows(err):
		return "not_found_error"
	case errors.Is(err, learning.ErrWrongAnswer),
		errors.Is(err, learning.ErrInvalidChoice),
		errors.Is(err, profile.ErrEmptyAgriStackID),
		errors.Is(err, i18n.ErrUnsupportedLanguage),
		errors.Is(err, onboarding.ErrOutOfOrder):
		return "validation_error"
	}
	return classifyMessage(err.Error())
}

func classifyMessage(errStr string) string {
	switch {
	case containsAny(errStr, "config", "configuration"):
		return "config_error"
	case containsAny(errStr, "database", "db"):
		return "database_error"
	case containsAny(errStr, "sign in", "session", "unauthorized"):
		return "auth_error"
	case containsAny(errStr, "network", "timeout", "connection", "offline", "internet"):
		return "network_error"
	case containsAny(errStr, "permission", "access denied"):
		return "permission_error"
	case containsAny(errStr, "not found", "does not exist", "unknown"):
		return "not_found_error"
	case containsAny(errStr, "invalid", "parse", "format", "incorrect", "not one of"):
		return "validation_error"
	default:
		return "unknown_error"
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
