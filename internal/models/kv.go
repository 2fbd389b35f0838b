package models

import "time"

// KVEntry is one row of the on-device key-value store. Values are plain
// strings or JSON-serialized documents; there is no schema beyond the key.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:200" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (KVEntry) TableName() string {
	return "kv_entries"
}

// Well-known KV keys.
const (
	KVUserLanguage            = "user_language"
	KVOnboardingLanguage      = "onboarding_lang"
	KVOnboardingCrop          = "onboarding_crop"
	KVOnboardingRewardClaimed = "onboarding_reward_claimed"
	KVUserPoints              = "user_points"
	KVUserSelectedCrop        = "user_selected_crop"
	KVAgriStackID             = "agristack_id"
)

// CacheEntry is the last successful payload of one cached query.
// At most one entry exists per key; it is overwritten in place.
type CacheEntry struct {
	Key      string    `gorm:"primaryKey;size:200" json:"key"`
	Payload  string    `gorm:"type:text" json:"payload"`
	StoredAt time.Time `gorm:"index" json:"stored_at"`
}

// TableName specifies the table name for GORM.
func (CacheEntry) TableName() string {
	return "cache_entries"
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}
