package learning

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/remote"
)

var (
	// ErrNoQuiz means the lesson is reading-only.
	ErrNoQuiz = errors.New("lesson has no quiz")
	// ErrWrongAnswer is returned when a completion is attempted with an incorrect answer.
	ErrWrongAnswer = errors.New("incorrect answer")
	// ErrInvalidChoice is returned for an answer that is not one of the options.
	ErrInvalidChoice = errors.New("not one of the options")
)

// FetchQuiz returns the quiz for a lesson, or ErrNoQuiz.
func (s *Service) FetchQuiz(ctx context.Context, lessonID int) (models.LessonQuiz, error) {
	var quiz models.LessonQuiz
	found, err := s.Client.From("lesson_quizzes").Select("*").Eq("lesson_id", lessonID).MaybeSingle(ctx, &quiz)
	if err != nil {
		return models.LessonQuiz{}, fmt.Errorf("fetch quiz for lesson %d: %w", lessonID, err)
	}
	if !found {
		return models.LessonQuiz{}, ErrNoQuiz
	}
	return quiz, nil
}

// ResolveChoice maps user input to one of options. Input may be the option
// text (case-insensitive) or its 1-based number.
func ResolveChoice(options []string, input string) (string, error) {
	in := strings.TrimSpace(input)
	if n, err := strconv.Atoi(in); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		return "", fmt.Errorf("%w: %d", ErrInvalidChoice, n)
	}
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), in) {
			return o, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChoice, input)
}

// CheckAnswer reports whether input selects the quiz's correct option.
func CheckAnswer(quiz models.LessonQuiz, input string) (bool, error) {
	choice, err := ResolveChoice(quiz.Options, input)
	if err != nil {
		return false, err
	}
	return choice == quiz.CorrectAnswer, nil
}

// Completion is the outcome of completing a lesson.
type Completion struct {
	LessonID int
	Sequence int
	// Points and XP credited by this call, as reported by the backend; zero
	// for duplicates and guests.
	Points int
	XP     int
	// Duplicate is true when the reward had already been credited.
	Duplicate bool
	// Guest is true when nothing was recorded because no one is signed in.
	Guest bool
}

// credit is the reply of the award_lesson procedure.
type credit struct {
	Credited bool `json:"credited"`
	Coins    int  `json:"coins"`
	XP       int  `json:"xp"`
}

// CompleteLesson records a lesson as completed and credits its reward once.
// The backend derives the amounts from the lesson row and refuses a second
// credit, so a retry after a failed award still pays out exactly once. A
// repeated completion is a success with Duplicate set. Guests may proceed but
// nothing is recorded.
func (s *Service) CompleteLesson(ctx context.Context, lessonID int) (Completion, error) {
	var lesson struct {
		Sequence int `json:"sequence"`
	}
	if err := s.Client.From("lessons").Select("sequence").Eq("id", lessonID).Single(ctx, &lesson); err != nil {
		return Completion{}, fmt.Errorf("complete lesson %d: %w", lessonID, err)
	}
	c := Completion{LessonID: lessonID, Sequence: lesson.Sequence}

	uid := s.Client.UserID()
	if uid == "" {
		c.Guest = true
		return c, nil
	}

	if _, err := s.Client.Upsert(ctx, "user_lessons", map[string]interface{}{
		"user_id":   uid,
		"lesson_id": lessonID,
	}, "user_id,lesson_id", remote.WithIdempotencyKey(fmt.Sprintf("lesson-%s-%d", uid, lessonID))); err != nil {
		return c, fmt.Errorf("complete lesson %d: %w", lessonID, err)
	}

	var cr credit
	if _, err := s.Client.RPC(ctx, "award_lesson", map[string]interface{}{
		"p_lesson_id": lessonID,
	}, &cr, remote.WithIdempotencyKey(fmt.Sprintf("lesson-credit-%s-%d", uid, lessonID))); err != nil {
		return c, fmt.Errorf("award lesson %d: %w", lessonID, err)
	}
	if !cr.Credited {
		c.Duplicate = true
		return c, nil
	}
	c.Points = cr.Coins
	c.XP = cr.XP
	return c, nil
}
