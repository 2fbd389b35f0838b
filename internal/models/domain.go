package models

import "time"

// Backend row payloads. JSON tags follow the backend column names; these
// values are opaque to the cache layer, which stores them as serialized JSON.

// LessonStatus is where a lesson sits on the learning path for one user.
type LessonStatus string

const (
	LessonCompleted LessonStatus = "completed"
	LessonCurrent   LessonStatus = "current"
	LessonLocked    LessonStatus = "locked"
)

// Lesson is a localized lesson row.
type Lesson struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Sequence    int          `json:"sequence"`
	Points      int          `json:"points"`
	Theme       string       `json:"theme,omitempty"`
	Content     string       `json:"content,omitempty"`
	Status      LessonStatus `json:"status"`
}

// LessonQuiz is the single-question quiz attached to a lesson.
type LessonQuiz struct {
	ID            int      `json:"id"`
	LessonID      int      `json:"lesson_id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Quest is a crop-specific or general challenge with an embedded quiz.
type Quest struct {
	ID              int      `json:"id"`
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle,omitempty"`
	Description     string   `json:"description"`
	IconType        string   `json:"icon_type,omitempty"`
	TargetCrop      *string  `json:"target_crop"`
	QuizQuestion    string   `json:"quiz_question"`
	QuizOptions     []string `json:"quiz_options"`
	CorrectAnswer   string   `json:"correct_answer"`
	QuizExplanation string   `json:"quiz_explanation,omitempty"`
	XPReward        int      `json:"xp_reward"`
	IsCompleted     bool     `json:"is_completed"`
}

// Profile is the user's row in the profiles table.
type Profile struct {
	ID           string  `json:"id"`
	FullName     string  `json:"full_name"`
	Language     string  `json:"language,omitempty"`
	SelectedCrop string  `json:"selected_crop,omitempty"`
	Coins        int     `json:"coins"`
	XP           int     `json:"xp"`
	QuestCoins   int     `json:"quest_coins"`
	FinalScore   float64 `json:"final_score"`
	AvatarURL    string  `json:"avatar_url,omitempty"`
	AgriStackID  string  `json:"agristack_id,omitempty"`
}

// LeaderboardEntry is one row of leaderboard_view. FinalScore is computed by
// the backend as coins x multiplier.
type LeaderboardEntry struct {
	ID         string  `json:"id"`
	FullName   string  `json:"full_name"`
	Coins      int     `json:"coins"`
	QuestCoins int     `json:"quest_coins"`
	Multiplier float64 `json:"multiplier"`
	FinalScore float64 `json:"final_score"`
	AvatarURL  string  `json:"avatar_url,omitempty"`
}

// Trend values for market prices.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// MarketPrice is one row of market_prices, keyed by crop id.
type MarketPrice struct {
	CropID      string    `json:"crop_id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	PrevPrice   float64   `json:"prev_price"`
	Trend       string    `json:"trend"`
	Change      float64   `json:"change"`
	Unit        string    `json:"unit"`
	LastUpdated time.Time `json:"last_updated"`
}
