package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedID string

func (f fixedID) GetOrCreateTrackingID() string { return string(f) }

func TestNew_DisabledByEnvVar(t *testing.T) {
	t.Setenv("KISAN_TELEMETRY_TRACKING_ENABLED", "false")

	client := New(nil)
	_, ok := client.(*noopClient)
	assert.True(t, ok, "Should return noopClient when disabled")
}

func TestNew_DisabledWithoutAPIKey(t *testing.T) {
	originalKey := PostHogAPIKey
	PostHogAPIKey = ""
	defer func() { PostHogAPIKey = originalKey }()

	client := New(fixedID("abc"))
	_, ok := client.(*noopClient)
	assert.True(t, ok, "Should return noopClient without API key")
	assert.Empty(t, client.GetTrackingID())
}

func TestNew_UsesProviderTrackingID(t *testing.T) {
	originalKey := PostHogAPIKey
	PostHogAPIKey = "phc_test"
	defer func() { PostHogAPIKey = originalKey }()
	t.Setenv("KISAN_TELEMETRY_TRACKING_ENABLED", "true")

	client := New(fixedID("tracking-123"))
	defer client.Close()
	assert.Equal(t, "tracking-123", client.GetTrackingID())
}

func TestNoopClient_DoesNotPanic(t *testing.T) {
	client := NewNoop()

	client.Track("test_event", map[string]interface{}{"key": "value"})
	client.TrackAppStarted("cli", true, "hi")
	client.TrackAppExited("cli", 5000, 3)
	client.TrackCLICommandExecuted("lessons", true, 100)
	client.TrackCLIError("lessons", "network_error")
	client.TrackCLIHelpViewed("root", []string{"--help"})
	client.TrackOnboardingStep("crop", "rice")
	client.TrackLanguageChanged("pa", "en")
	client.TrackLessonCompleted(2, true)
	client.TrackQuestCompleted("q1", false)
	client.TrackRewardUnlocked(3, 5000)
	client.TrackRewardCodeCopied(3)
	client.TrackOfflineServed("dashboard_v2_hi", 120)
	client.TrackMarketRefreshed(8, "data.gov.in")
	client.TrackAvatarUploaded(false)
	client.TrackViewNavigated("lessons", "dashboard")

	client.Close()
}
