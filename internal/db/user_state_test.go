package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateTrackingID_Stable(t *testing.T) {
	db := testDB(t)

	first := db.GetOrCreateTrackingID()
	second := db.GetOrCreateTrackingID()

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestSession_SaveLoadClear(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	s, err := db.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s, "fresh install is a guest")

	tracking := db.GetOrCreateTrackingID()
	expires := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveSession(ctx, StoredSession{
		UserID:       "user-1",
		Email:        "farmer@example.com",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    expires,
	}))

	s, err = db.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "refresh", s.RefreshToken)
	assert.True(t, s.ExpiresAt.Equal(expires))

	require.NoError(t, db.ClearSession(ctx))
	s, err = db.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	assert.Equal(t, tracking, db.GetOrCreateTrackingID(), "sign-out keeps the tracking id")
}
