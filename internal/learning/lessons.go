// Package learning serves the lesson path: localized lessons with per-user
// progress, lesson quizzes and lesson completion.
package learning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/asteroid-belt/kisan/internal/cachedquery"
	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// Cache keys. Lesson lists depend on the language and on who is signed in.
func LessonsKey(lang, userID string) cachedquery.Key {
	return cachedquery.NewKey("lessons_list_themed", 2, lang, userOrGuest(userID))
}

func NextLessonKey(lang, userID string) cachedquery.Key {
	return cachedquery.NewKey("dashboard_next_lesson", 2, lang, userOrGuest(userID))
}

func LessonKey(lessonID int, lang string) cachedquery.Key {
	return cachedquery.NewKey("lesson_detail", 1, fmt.Sprint(lessonID), lang)
}

func QuizKey(lessonID int) cachedquery.Key {
	return cachedquery.NewKey("lesson_quiz", 1, fmt.Sprint(lessonID))
}

func userOrGuest(userID string) string {
	if userID == "" {
		return "guest"
	}
	return userID
}

// Service reads and writes lesson data.
type Service struct {
	Client *remote.Client
}

// NewService creates a lesson service.
func NewService(c *remote.Client) *Service {
	return &Service{Client: c}
}

type lessonRow map[string]interface{}

func (r lessonRow) str(col string) string {
	if v, ok := r[col].(string); ok {
		return v
	}
	return ""
}

func (r lessonRow) num(col string) int {
	if v, ok := r[col].(float64); ok {
		return int(v)
	}
	return 0
}

// localized picks <base>_<lang>, then <base>_en, then the untranslated column.
func (r lessonRow) localized(base, lang string) string {
	for _, col := range []string{base + "_" + lang, base + "_" + i18n.DefaultLanguage, base} {
		if s := r.str(col); s != "" {
			return s
		}
	}
	return ""
}

func (r lessonRow) lesson(lang string) models.Lesson {
	title := r.localized("title", lang)
	if title == "" {
		title = "Lesson"
	}
	return models.Lesson{
		ID:          r.num("id"),
		Title:       title,
		Description: r.localized("description", lang),
		Sequence:    r.num("sequence"),
		Points:      r.num("points"),
		Theme:       r.str("theme"),
		Content:     strings.ReplaceAll(r.localized("content", lang), `\n`, "\n"),
	}
}

// FetchLessons returns all lessons in sequence order with their status for
// the current user. Guests see lesson 1 as current and the rest locked.
func (s *Service) FetchLessons(ctx context.Context, lang string) ([]models.Lesson, error) {
	var rows []lessonRow
	if err := s.Client.From("lessons").Select("*").Order("sequence", true).Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("fetch lessons: %w", err)
	}
	lessons := make([]models.Lesson, 0, len(rows))
	for _, r := range rows {
		l := r.lesson(lang)
		l.Content = ""
		lessons = append(lessons, l)
	}

	completed, err := s.completedIDs(ctx)
	if err != nil {
		return nil, err
	}
	return AssignStatus(lessons, completed), nil
}

func (s *Service) completedIDs(ctx context.Context) (map[int]bool, error) {
	uid := s.Client.UserID()
	if uid == "" {
		return nil, nil
	}
	var rows []struct {
		LessonID int `json:"lesson_id"`
	}
	if err := s.Client.From("user_lessons").Select("lesson_id").Eq("user_id", uid).Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("fetch completed lessons: %w", err)
	}
	ids := make(map[int]bool, len(rows))
	for _, r := range rows {
		ids[r.LessonID] = true
	}
	return ids, nil
}

// AssignStatus marks completed lessons, then the lesson right after the
// highest completed sequence as current. Everything else is locked.
func AssignStatus(lessons []models.Lesson, completed map[int]bool) []models.Lesson {
	lastSeq := 0
	for _, l := range lessons {
		if completed[l.ID] && l.Sequence > lastSeq {
			lastSeq = l.Sequence
		}
	}
	out := make([]models.Lesson, len(lessons))
	for i, l := range lessons {
		switch {
		case completed[l.ID]:
			l.Status = models.LessonCompleted
		case l.Sequence == lastSeq+1:
			l.Status = models.LessonCurrent
		default:
			l.Status = models.LessonLocked
		}
		out[i] = l
	}
	return out
}

// Summary groups a lesson list for display.
type Summary struct {
	Current *models.Lesson
	// Upcoming are locked lessons in sequence order.
	Upcoming []models.Lesson
	// Completed lessons, most recent sequence first.
	Completed  []models.Lesson
	TotalScore int
}

// Summarize splits lessons by status and totals completed points.
func Summarize(lessons []models.Lesson) Summary {
	var s Summary
	for i := range lessons {
		l := lessons[i]
		switch l.Status {
		case models.LessonCurrent:
			if s.Current == nil {
				s.Current = &l
			}
		case models.LessonCompleted:
			s.Completed = append(s.Completed, l)
			s.TotalScore += l.Points
		default:
			s.Upcoming = append(s.Upcoming, l)
		}
	}
	sort.SliceStable(s.Completed, func(i, j int) bool {
		return s.Completed[i].Sequence > s.Completed[j].Sequence
	})
	return s
}

// NextLesson is the dashboard's "continue" card.
type NextLesson struct {
	models.Lesson
	AllComplete bool `json:"is_all_complete"`
}

// PickNext returns the first lesson not completed, or the last lesson with
// AllComplete set. ok is false when there are no lessons.
func PickNext(lessons []models.Lesson) (NextLesson, bool) {
	if len(lessons) == 0 {
		return NextLesson{}, false
	}
	for _, l := range lessons {
		if l.Status != models.LessonCompleted {
			return NextLesson{Lesson: l}, true
		}
	}
	return NextLesson{Lesson: lessons[len(lessons)-1], AllComplete: true}, true
}

// FetchNextLesson returns the dashboard's next lesson.
func (s *Service) FetchNextLesson(ctx context.Context, lang string) (NextLesson, error) {
	lessons, err := s.FetchLessons(ctx, lang)
	if err != nil {
		return NextLesson{}, err
	}
	next, ok := PickNext(lessons)
	if !ok {
		return NextLesson{}, fmt.Errorf("fetch next lesson: no lessons published")
	}
	return next, nil
}

// FetchLesson returns one lesson including its content.
func (s *Service) FetchLesson(ctx context.Context, lessonID int, lang string) (models.Lesson, error) {
	var row lessonRow
	if err := s.Client.From("lessons").Select("*").Eq("id", lessonID).Single(ctx, &row); err != nil {
		return models.Lesson{}, fmt.Errorf("fetch lesson %d: %w", lessonID, err)
	}
	return row.lesson(lang), nil
}
