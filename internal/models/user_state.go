package models

import (
	"time"
)

// UserStateID is the primary key of the single local user-state row.
const UserStateID = "default"

// UserState holds per-install state that is not a cache entry or flag: the
// anonymous telemetry id and the persisted backend session.
// Note: The table name is "user_state" to avoid conflicts with reserved keywords.
type UserState struct {
	ID         string `gorm:"primaryKey;size:64" json:"id"`
	TrackingID string `gorm:"size:64" json:"tracking_id"`

	// Persisted backend session; empty AccessToken means guest.
	UserID           string     `gorm:"size:64" json:"user_id"`
	Email            string     `gorm:"size:255" json:"email"`
	AccessToken      string     `gorm:"type:text" json:"-"`
	RefreshToken     string     `gorm:"type:text" json:"-"`
	SessionExpiresAt *time.Time `json:"session_expires_at,omitempty"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (UserState) TableName() string {
	return "user_state"
}

// HasSession returns true if a backend session is stored.
func (s *UserState) HasSession() bool {
	return s.AccessToken != "" && s.UserID != ""
}
