package telemetry

import (
	"runtime"

	"github.com/asteroid-belt/kisan/pkg/version"
)

// Event names - CLI
const (
	EventAppStarted         = "app_started"
	EventAppExited          = "app_exited"
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"
	EventCLIHelpViewed      = "cli_help_viewed"
)

// Event names - learning loop
const (
	EventOnboardingStep   = "onboarding_step_completed"
	EventLanguageChanged  = "language_changed"
	EventLessonCompleted  = "lesson_completed"
	EventQuestCompleted   = "quest_completed"
	EventRewardUnlocked   = "reward_unlocked"
	EventRewardCodeCopied = "reward_code_copied"
	EventOfflineServed    = "offline_served"
	EventMarketRefreshed  = "market_refreshed"
	EventAvatarUploaded   = "avatar_uploaded"
	EventViewNavigated    = "view_navigated"
)

// baseProperties returns common properties for all events.
func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"version":    version.Version,
		"prerelease": version.IsPrerelease(),
		"dev_build":  version.IsDevBuild(),
	}
}

// --- CLI Tracking Methods ---

// TrackAppStarted tracks application startup.
func (c *posthogClient) TrackAppStarted(mode string, signedIn bool, language string) {
	props := baseProperties()
	props["mode"] = mode
	props["signed_in"] = signedIn
	props["language"] = language
	c.Track(EventAppStarted, props)
}

// TrackAppExited tracks application exit.
func (c *posthogClient) TrackAppExited(mode string, sessionDurationMs int64, commandsRun int) {
	props := baseProperties()
	props["mode"] = mode
	props["session_duration_ms"] = sessionDurationMs
	props["commands_run"] = commandsRun
	c.Track(EventAppExited, props)
}

// TrackCLICommandExecuted tracks CLI command execution.
func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	props := baseProperties()
	props["command_name"] = commandName
	props["has_flags"] = hasFlags
	props["execution_duration_ms"] = durationMs
	c.Track(EventCLICommandExecuted, props)
}

// TrackCLIError tracks CLI errors by category, never by message.
func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	props := baseProperties()
	props["command_name"] = commandName
	props["error_type"] = errorType
	c.Track(EventCLIErrorOccurred, props)
}

// TrackCLIHelpViewed tracks help output.
func (c *posthogClient) TrackCLIHelpViewed(commandName string, cliArgs []string) {
	props := baseProperties()
	props["command_name"] = commandName
	props["cli_args"] = cliArgs
	c.Track(EventCLIHelpViewed, props)
}

// --- Learning loop ---

func (c *posthogClient) TrackOnboardingStep(step, value string) {
	props := baseProperties()
	props["step"] = step
	props["value"] = value
	c.Track(EventOnboardingStep, props)
}

func (c *posthogClient) TrackLanguageChanged(language, previous string) {
	props := baseProperties()
	props["language"] = language
	props["previous_language"] = previous
	c.Track(EventLanguageChanged, props)
}

// TrackLessonCompleted records a completion. duplicate is true when the
// backend had already recorded it.
func (c *posthogClient) TrackLessonCompleted(sequence int, duplicate bool) {
	props := baseProperties()
	props["sequence"] = sequence
	props["duplicate"] = duplicate
	c.Track(EventLessonCompleted, props)
}

func (c *posthogClient) TrackQuestCompleted(questID string, duplicate bool) {
	props := baseProperties()
	props["quest_id"] = questID
	props["duplicate"] = duplicate
	c.Track(EventQuestCompleted, props)
}

func (c *posthogClient) TrackRewardUnlocked(rewardID int, cost int) {
	props := baseProperties()
	props["reward_id"] = rewardID
	props["cost"] = cost
	c.Track(EventRewardUnlocked, props)
}

func (c *posthogClient) TrackRewardCodeCopied(rewardID int) {
	props := baseProperties()
	props["reward_id"] = rewardID
	c.Track(EventRewardCodeCopied, props)
}

// TrackOfflineServed records a screen rendered from cache after a failed refresh.
func (c *posthogClient) TrackOfflineServed(cacheKey string, ageSeconds int64) {
	props := baseProperties()
	props["cache_key"] = cacheKey
	props["age_seconds"] = ageSeconds
	c.Track(EventOfflineServed, props)
}

func (c *posthogClient) TrackMarketRefreshed(updated int, source string) {
	props := baseProperties()
	props["updated"] = updated
	props["source"] = source
	c.Track(EventMarketRefreshed, props)
}

func (c *posthogClient) TrackAvatarUploaded(fallback bool) {
	props := baseProperties()
	props["fallback"] = fallback
	c.Track(EventAvatarUploaded, props)
}

// --- TUI ---

// TrackViewNavigated tracks view navigation.
func (c *posthogClient) TrackViewNavigated(viewName, previousView string) {
	props := baseProperties()
	props["view_name"] = viewName
	props["previous_view"] = previousView
	c.Track(EventViewNavigated, props)
}

// --- No-op implementations ---

func (c *noopClient) TrackAppStarted(mode string, signedIn bool, language string)         {}
func (c *noopClient) TrackAppExited(mode string, sessionDurationMs int64, commandsRun int) {}
func (c *noopClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
}
func (c *noopClient) TrackCLIError(commandName, errorType string)             {}
func (c *noopClient) TrackCLIHelpViewed(commandName string, cliArgs []string) {}
func (c *noopClient) TrackOnboardingStep(step, value string)                  {}
func (c *noopClient) TrackLanguageChanged(language, previous string)          {}
func (c *noopClient) TrackLessonCompleted(sequence int, duplicate bool)       {}
func (c *noopClient) TrackQuestCompleted(questID string, duplicate bool)      {}
func (c *noopClient) TrackRewardUnlocked(rewardID int, cost int)              {}
func (c *noopClient) TrackRewardCodeCopied(rewardID int)                      {}
func (c *noopClient) TrackOfflineServed(cacheKey string, ageSeconds int64)    {}
func (c *noopClient) TrackMarketRefreshed(updated int, source string)         {}
func (c *noopClient) TrackAvatarUploaded(fallback bool)                       {}
func (c *noopClient) TrackViewNavigated(viewName, previousView string)        {}
