package models

import "time"

// MirrorStatus is the lifecycle state of an outbox item.
type MirrorStatus string

const (
	MirrorPending MirrorStatus = "pending"
	MirrorDone    MirrorStatus = "done"
	MirrorFailed  MirrorStatus = "failed"
	// MirrorSuperseded items were replaced by a newer write to the same target.
	MirrorSuperseded MirrorStatus = "superseded"
)

// MirrorItem is a local change waiting to be copied to the backend.
// The local write it mirrors has already happened; this row only tracks the
// best-effort remote copy: UPDATE <TargetTable> SET <TargetColumn>=<Value> WHERE <MatchColumn>=<MatchValue>.
type MirrorItem struct {
	ID            string       `gorm:"primaryKey;size:36" json:"id"`
	TargetTable   string       `gorm:"size:64;not null" json:"target_table"`
	TargetColumn  string       `gorm:"size:64;not null" json:"target_column"`
	Value         string       `gorm:"type:text" json:"value"`
	MatchColumn   string       `gorm:"size:64;not null" json:"match_column"`
	MatchValue    string       `gorm:"size:255;not null" json:"match_value"`
	Attempts      int          `gorm:"default:0" json:"attempts"`
	NextAttemptAt time.Time    `gorm:"index" json:"next_attempt_at"`
	LastError     string       `gorm:"type:text" json:"last_error,omitempty"`
	Status        MirrorStatus `gorm:"size:16;index;default:pending" json:"status"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (MirrorItem) TableName() string {
	return "mirror_outbox"
}

// IsDue reports whether the item should be attempted at now.
func (m *MirrorItem) IsDue(now time.Time) bool {
	return m.Status == MirrorPending && !m.NextAttemptAt.After(now)
}
