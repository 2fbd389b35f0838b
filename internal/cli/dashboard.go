package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/internal/leaderboard"
	"github.com/asteroid-belt/kisan/internal/learning"
	"github.com/asteroid-belt/kisan/internal/market"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show your coins, next lesson and market pulse",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return trackCLIError("dashboard", err)
		}
		defer a.Close()
		return showDashboard(cmd, a)
	},
}

// pulseSize is how many prices the dashboard shows.
const pulseSize = 3

func showDashboard(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	lang := a.languages.Language()
	uid := a.userID()

	heading(a.t("dashboard"))
	if uid == "" {
		fmt.Println(muted(a.t("guest_notice")))
	}

	coins := 0
	if raw, ok, _ := a.db.GetKV(ctx, models.KVUserPoints); ok {
		coins, _ = strconv.Atoi(raw)
	}
	if uid != "" {
		svc := leaderboard.NewService(a.remote)
		if st, err := load(ctx, a, leaderboard.Key(uid), svc.Fetch); err == nil && st.Me != nil {
			coins = st.Me.Coins
			fmt.Printf("%-24s %s\n", a.t("current_leaderboard_position"), colored(theme.TierColor(string(st.Me.Tier)), "#"+strconv.Itoa(st.Me.Rank)))
		}
	}
	fmt.Printf("%-24s %s\n", a.t("available_coins"), accent(strconv.Itoa(coins)))

	fmt.Println()
	fmt.Println(a.t("next_lesson"))
	lessons := learning.NewService(a.remote)
	next, err := load(ctx, a, learning.NextLessonKey(lang, uid), func(ctx context.Context) (learning.NextLesson, error) {
		return lessons.FetchNextLesson(ctx, lang)
	})
	switch {
	case err != nil:
		fmt.Println(muted("  " + a.t("no_data")))
	case next.AllComplete:
		fmt.Println("  " + a.t("all_lessons_complete"))
	default:
		fmt.Printf("  %d. %s  %s\n", next.Sequence, next.Title, muted(fmt.Sprintf("+%d %s", next.Points, a.t("coins"))))
		fmt.Printf("  %s\n", muted(fmt.Sprintf("kisan lesson show %d", next.ID)))
	}

	fmt.Println()
	fmt.Println(a.t("market_pulse"))
	prices := market.NewService(a.remote, nil)
	pulse, err := load(ctx, a, market.Key, prices.Fetch)
	if err != nil || len(*pulse) == 0 {
		fmt.Println(muted("  " + a.t("no_data")))
		return nil
	}
	for i, p := range *pulse {
		if i == pulseSize {
			break
		}
		printPrice(a, p)
	}
	return nil
}
