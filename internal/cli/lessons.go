package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/internal/cli/prompts"
	"github.com/asteroid-belt/kisan/internal/learning"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "Show your learning path",
	Long: `List lessons in order with your progress.

Completed lessons are marked, the current one is highlighted and the
rest stay locked until you reach them.`,
	Args: cobra.NoArgs,
	RunE: runLessons,
}

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Read a lesson, take its quiz and complete it",
}

var lessonShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Read a lesson",
	Args:  cobra.ExactArgs(1),
	RunE:  runLessonShow,
}

var lessonQuizCmd = &cobra.Command{
	Use:   "quiz <id>",
	Short: "Show a lesson's knowledge check",
	Args:  cobra.ExactArgs(1),
	RunE:  runLessonQuiz,
}

var lessonCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Answer the quiz and complete a lesson",
	Long: `Complete a lesson and collect its coins.

Pass the answer as option text or letter, e.g. '--answer B'. In a
terminal the options are offered when --answer is omitted. Completing
a lesson twice is harmless: coins are only credited once.`,
	Args: cobra.ExactArgs(1),
	RunE: runLessonComplete,
}

var lessonAnswer string

func init() {
	lessonCompleteCmd.Flags().StringVarP(&lessonAnswer, "answer", "a", "", "Quiz answer (option text or letter)")
	lessonCmd.AddCommand(lessonShowCmd, lessonQuizCmd, lessonCompleteCmd)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// quizResult caches "this lesson has no quiz" alongside real quizzes.
type quizResult struct {
	Quiz *models.LessonQuiz `json:"quiz,omitempty"`
	None bool               `json:"none,omitempty"`
}

func fetchQuiz(svc *learning.Service, lessonID int) func(context.Context) (quizResult, error) {
	return func(ctx context.Context) (quizResult, error) {
		q, err := svc.FetchQuiz(ctx, lessonID)
		if errors.Is(err, learning.ErrNoQuiz) {
			return quizResult{None: true}, nil
		}
		if err != nil {
			return quizResult{}, err
		}
		return quizResult{Quiz: &q}, nil
	}
}

func runLessons(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("lessons", err)
	}
	defer a.Close()

	lang := a.languages.Language()
	svc := learning.NewService(a.remote)
	list, err := load(ctx, a, learning.LessonsKey(lang, a.userID()), func(ctx context.Context) ([]models.Lesson, error) {
		return svc.FetchLessons(ctx, lang)
	})
	if err != nil {
		return trackCLIError("lessons", err)
	}

	heading(a.t("lessons"))
	if len(*list) == 0 {
		fmt.Println(a.t("no_data"))
		return nil
	}

	sum := learning.Summarize(*list)
	for _, l := range *list {
		var marker, status string
		switch l.Status {
		case models.LessonCompleted:
			marker = colored(theme.Current.Success, "✓")
			status = muted(a.t("completed"))
		case models.LessonCurrent:
			marker = accent("▸")
			status = accent(a.t("current"))
		default:
			marker = muted("·")
			status = muted(a.t("locked"))
		}
		fmt.Printf("%s %2d. %-40s %5d  %s\n", marker, l.Sequence, l.Title, l.Points, status)
	}

	fmt.Println()
	pb := NewProgressBar(len(*list), 20)
	pb.Update(len(sum.Completed), fmt.Sprintf("%s %d", a.t("coins"), sum.TotalScore))
	fmt.Println(pb.Render())
	if sum.Current != nil {
		fmt.Printf("\n%s: kisan lesson show %d\n", a.t("continue_learning"), sum.Current.ID)
	}
	return nil
}

func runLessonShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return trackCLIError("lesson show", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("lesson show", err)
	}
	defer a.Close()

	lang := a.languages.Language()
	svc := learning.NewService(a.remote)
	lesson, err := load(ctx, a, learning.LessonKey(id, lang), func(ctx context.Context) (models.Lesson, error) {
		return svc.FetchLesson(ctx, id, lang)
	})
	if err != nil {
		return trackCLIError("lesson show", err)
	}

	heading(fmt.Sprintf("%d. %s", lesson.Sequence, lesson.Title))
	if lesson.Description != "" {
		fmt.Println(muted(lesson.Description))
		fmt.Println()
	}
	if lesson.Content != "" {
		fmt.Println(renderMarkdown(lesson.Content))
	}
	fmt.Printf("%s: kisan lesson quiz %d\n", a.t("take_quiz"), id)
	return nil
}

func runLessonQuiz(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return trackCLIError("lesson quiz", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("lesson quiz", err)
	}
	defer a.Close()

	res, err := load(ctx, a, learning.QuizKey(id), fetchQuiz(learning.NewService(a.remote), id))
	if err != nil {
		return trackCLIError("lesson quiz", err)
	}
	if res.None {
		fmt.Println("This lesson has no quiz.")
		fmt.Printf("\nkisan lesson complete %d\n", id)
		return nil
	}

	heading(a.t("knowledge_check"))
	printQuestion(a, res.Quiz.Question, res.Quiz.Options)
	fmt.Printf("\nkisan lesson complete %d --answer <letter>\n", id)
	return nil
}

func printQuestion(a *app, question string, options []string) {
	fmt.Printf("%s: %s\n\n", a.t("question"), question)
	for i, o := range options {
		fmt.Printf("  %s %s\n", accent(fmt.Sprintf("%c.", 'A'+rune(i%26))), o)
	}
}

// pickAnswer returns --answer, or asks in a terminal.
func pickAnswer(answer, question string, options []string) (string, error) {
	if answer != "" {
		return answer, nil
	}
	if !interactive() {
		return "", errors.New("invalid answer: pass --answer")
	}
	return prompts.RunSelect(question, prompts.BuildAnswerOptions(options), "")
}

func runLessonComplete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return trackCLIError("lesson complete", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("lesson complete", err)
	}
	defer a.Close()

	svc := learning.NewService(a.remote)
	res, err := fetchQuiz(svc, id)(ctx)
	if err != nil {
		return trackCLIError("lesson complete", err)
	}

	if !res.None {
		answer, err := pickAnswer(lessonAnswer, res.Quiz.Question, res.Quiz.Options)
		if err != nil {
			return trackCLIError("lesson complete", err)
		}
		ok, err := learning.CheckAnswer(*res.Quiz, answer)
		if err != nil {
			return trackCLIError("lesson complete", err)
		}
		if !ok {
			fmt.Println(colored(theme.Current.Error, a.t("not_quite_right")))
			fmt.Println(a.t("review_lesson"))
			return trackCLIError("lesson complete", learning.ErrWrongAnswer)
		}
		fmt.Println(colored(theme.Current.Success, a.t("correct")))
	}

	c, err := svc.CompleteLesson(ctx, id)
	if err != nil {
		return trackCLIError("lesson complete", err)
	}
	telemetryClient.TrackLessonCompleted(c.Sequence, c.Duplicate)

	fmt.Println(accent(a.t("completed_lesson_title")))
	switch {
	case c.Guest:
		fmt.Println(muted(a.t("guest_notice")))
	case c.Duplicate:
		fmt.Println(muted("Already completed; no coins this time."))
	default:
		fmt.Printf("+%d %s  +%d %s\n", c.Points, a.t("coins"), c.XP, a.t("xp"))
	}
	return nil
}

// renderMarkdown renders lesson content for the terminal, falling back to
// the raw text.
func renderMarkdown(src string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return src
	}
	out, err := r.Render(src)
	if err != nil {
		return src
	}
	return out
}
