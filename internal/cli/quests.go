package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/internal/learning"
	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/onboarding"
	"github.com/asteroid-belt/kisan/internal/quests"
	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

var questsCmd = &cobra.Command{
	Use:   "quests",
	Short: "List quests for your crop",
	Long: `List general quests and the ones for your selected crop.

Each quest ends with a short quiz; a correct answer earns quest coins.`,
	Args: cobra.NoArgs,
	RunE: runQuests,
}

var questCmd = &cobra.Command{
	Use:   "quest",
	Short: "Read and complete a quest",
}

var questShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a quest's mission brief and quiz",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuestShow,
}

var questCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Answer a quest quiz and collect its coins",
	Long: `Answer a quest's quiz, e.g. 'kisan quest complete 1 --answer A'.

Quests can only be completed online. Completing a quest twice never
credits its coins twice.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuestComplete,
}

var questAnswer string

func init() {
	questCompleteCmd.Flags().StringVarP(&questAnswer, "answer", "a", "", "Quiz answer (option text or letter)")
	questCmd.AddCommand(questShowCmd, questCompleteCmd)
}

// forCrop keeps general quests and those targeting crop.
func forCrop(all []models.Quest, crop string) []models.Quest {
	out := make([]models.Quest, 0, len(all))
	for _, q := range all {
		if q.TargetCrop == nil || *q.TargetCrop == "" || *q.TargetCrop == crop {
			out = append(out, q)
		}
	}
	return out
}

func runQuests(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("quests", err)
	}
	defer a.Close()

	svc := quests.NewService(a.remote)
	board, err := load(ctx, a, quests.BoardKey(a.userID()), svc.FetchBoard)
	if err != nil {
		return trackCLIError("quests", err)
	}

	crop, _, _ := a.db.GetKV(ctx, models.KVUserSelectedCrop)
	list := forCrop(board.Quests, crop)

	heading(a.t("monthly_quests"))
	fmt.Printf("%s %s   %s %s\n\n", a.t("rank"), accent(board.Rank), a.t("quest_coins"), accent(strconv.Itoa(board.QuestCoins)))
	if len(list) == 0 {
		fmt.Println(a.t("no_data"))
		return nil
	}
	for _, q := range list {
		marker := muted("○")
		if q.IsCompleted {
			marker = colored(theme.Current.Success, "✓")
		}
		fmt.Printf("%s %3d  %-40s %s\n", marker, q.ID, q.Title, muted(fmt.Sprintf("+%d", q.XPReward)))
		if q.Subtitle != "" {
			fmt.Printf("       %s\n", muted(q.Subtitle))
		}
	}
	return nil
}

func runQuestShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return trackCLIError("quest show", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("quest show", err)
	}
	defer a.Close()

	svc := quests.NewService(a.remote)
	q, err := load(ctx, a, quests.QuestKey(id), func(ctx context.Context) (models.Quest, error) {
		return svc.FetchQuest(ctx, id)
	})
	if err != nil {
		return trackCLIError("quest show", err)
	}

	heading(q.Title)
	fmt.Println(a.t("mission_brief"))
	fmt.Println(renderMarkdown(q.Description))
	fmt.Println(a.languages.Format("win_xp", map[string]string{"xp": strconv.Itoa(q.XPReward)}))
	fmt.Println()
	printQuestion(a, q.QuizQuestion, q.QuizOptions)
	fmt.Printf("\nkisan quest complete %d --answer <letter>\n", id)
	return nil
}

func runQuestComplete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return trackCLIError("quest complete", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("quest complete", err)
	}
	defer a.Close()

	svc := quests.NewService(a.remote)
	answer := questAnswer
	if answer == "" {
		q, err := svc.FetchQuest(ctx, id)
		if err != nil {
			return trackCLIError("quest complete", err)
		}
		if answer, err = pickAnswer("", q.QuizQuestion, q.QuizOptions); err != nil {
			return trackCLIError("quest complete", err)
		}
	}

	c, err := svc.CompleteQuest(ctx, id, answer)
	if errors.Is(err, learning.ErrWrongAnswer) {
		fmt.Println(colored(theme.Current.Error, a.t("incorrect")))
		fmt.Println(a.t("try_again"))
		return trackCLIError("quest complete", err)
	}
	if err != nil {
		if errors.Is(err, quests.ErrOffline) {
			fmt.Println(muted(a.t("go_online")))
		}
		return trackCLIError("quest complete", err)
	}
	telemetryClient.TrackQuestCompleted(strconv.Itoa(id), c.Duplicate)

	fmt.Println(accent(a.t("quest_completed")))
	if c.Explanation != "" {
		fmt.Println(muted(c.Explanation))
	}
	switch {
	case c.Guest:
		fmt.Println(muted(a.t("guest_notice")))
	case c.Duplicate:
		fmt.Println(muted("Already completed; no coins this time."))
	default:
		fmt.Printf("%s +%d %s\n", a.t("reward_earned"), c.Coins, a.t("coins"))
	}

	claimFirstReward(ctx, a)
	return nil
}

// claimFirstReward marks the onboarding reward step once a quest is done.
func claimFirstReward(ctx context.Context, a *app) {
	flags, err := a.onboarding.LoadFlags(ctx)
	if err != nil || flags.RewardClaimed || flags.Crop == "" {
		return
	}
	route, err := a.onboarding.ClaimFirstReward(ctx)
	if err != nil {
		log.Warnf("claim first reward: %v", err)
		return
	}
	if route != onboarding.Home {
		fmt.Printf("\nNext: %s\n", route.Command())
	}
}
