package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/asteroid-belt/kisan/internal/db"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary test database for startup tests.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(db.Config{
		Path:        dbPath,
		Debug:       false,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	})
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}

	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	})

	return database
}

func TestShowStartupNotification_WithFailed(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	item, err := database.EnqueueMirror(ctx, models.MirrorItem{
		TargetTable:  "profiles",
		TargetColumn: "selected_crop",
		Value:        "rice",
		MatchColumn:  "id",
		MatchValue:   "u1",
	})
	require.NoError(t, err)
	require.NoError(t, database.MarkMirrorRetry(ctx, item.ID, 5, item.NextAttemptAt, "boom", true))

	var buf bytes.Buffer
	shown := showStartupNotification(ctx, database, &buf)

	assert.True(t, shown)
	assert.Contains(t, buf.String(), "profiles.selected_crop")
	assert.Contains(t, buf.String(), "1 change could not be saved")
	assert.Contains(t, buf.String(), "kisan sync --retry-failed")
}

func TestShowStartupNotification_PendingIsQuiet(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	_, err := database.EnqueueMirror(ctx, models.MirrorItem{
		TargetTable:  "profiles",
		TargetColumn: "language",
		Value:        "hi",
		MatchColumn:  "id",
		MatchValue:   "u1",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.False(t, showStartupNotification(ctx, database, &buf))
	assert.Empty(t, buf.String())
}

func TestShowStartupNotification_NilStore(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, showStartupNotification(context.Background(), nil, &buf))
}
