package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asteroid-belt/kisan/internal/models"
)

// GetUserState retrieves the singleton user-state row.
func (db *DB) GetUserState() (*models.UserState, error) {
	var state models.UserState
	err := db.Where("id = ?", models.UserStateID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.UserState{ID: models.UserStateID}, nil
		}
		return nil, err
	}
	return &state, nil
}

// GetOrCreateTrackingID returns the persistent tracking ID, creating one if it doesn't exist.
// On any error, it falls back to generating a per-session ID.
func (db *DB) GetOrCreateTrackingID() string {
	state, err := db.GetUserState()
	if err != nil {
		return generateSessionID()
	}

	if state.TrackingID != "" {
		return state.TrackingID
	}

	trackingID := generateSessionID()
	state.TrackingID = trackingID
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tracking_id", "updated_at"}),
	}).Create(state).Error
	if err != nil {
		// Even if save fails, return the generated ID for this session
		return trackingID
	}

	return trackingID
}

// generateSessionID creates a new UUID for session-based tracking.
func generateSessionID() string {
	return uuid.New().String()
}

// StoredSession is the persisted form of a backend session.
type StoredSession struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SaveSession persists the backend session so later invocations stay signed in.
func (db *DB) SaveSession(ctx context.Context, s StoredSession) error {
	var expires *time.Time
	if !s.ExpiresAt.IsZero() {
		t := s.ExpiresAt
		expires = &t
	}
	state := models.UserState{
		ID:               models.UserStateID,
		UserID:           s.UserID,
		Email:            s.Email,
		AccessToken:      s.AccessToken,
		RefreshToken:     s.RefreshToken,
		SessionExpiresAt: expires,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "email", "access_token", "refresh_token", "session_expires_at", "updated_at",
		}),
	}).Create(&state).Error
}

// LoadSession returns the persisted session, or nil for a guest.
func (db *DB) LoadSession(ctx context.Context) (*StoredSession, error) {
	var state models.UserState
	err := db.WithContext(ctx).Where("id = ?", models.UserStateID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !state.HasSession() {
		return nil, nil
	}
	s := &StoredSession{
		UserID:       state.UserID,
		Email:        state.Email,
		AccessToken:  state.AccessToken,
		RefreshToken: state.RefreshToken,
	}
	if state.SessionExpiresAt != nil {
		s.ExpiresAt = *state.SessionExpiresAt
	}
	return s, nil
}

// ClearSession forgets the persisted session. The tracking id is kept.
func (db *DB) ClearSession(ctx context.Context) error {
	return db.WithContext(ctx).Model(&models.UserState{}).
		Where("id = ?", models.UserStateID).
		Updates(map[string]interface{}{
			"user_id":            "",
			"email":              "",
			"access_token":       "",
			"refresh_token":      "",
			"session_expires_at": nil,
		}).Error
}
