package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/internal/leaderboard"
	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/remote"
	"github.com/asteroid-belt/kisan/internal/rewards"
	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the top farmers",
	Args:  cobra.NoArgs,
	RunE:  runLeaderboard,
}

var rewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "Show the rewards vine",
	Long: `Show the rewards vine: vouchers unlocked one after another with
the coins you earn from lessons and quests.`,
	Args: cobra.NoArgs,
	RunE: runRewards,
}

var rewardsUnlockCmd = &cobra.Command{
	Use:   "unlock <id>",
	Short: "Spend coins on the next reward",
	Args:  cobra.ExactArgs(1),
	RunE:  runRewardsUnlock,
}

var rewardsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the redeem code of an unlocked reward",
	Args:  cobra.ExactArgs(1),
	RunE:  runRewardsShow,
}

var rewardsCopy bool

func init() {
	rewardsShowCmd.Flags().BoolVar(&rewardsCopy, "copy", false, "Copy the redeem code to the clipboard")
	rewardsCmd.AddCommand(rewardsUnlockCmd, rewardsShowCmd)
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("leaderboard", err)
	}
	defer a.Close()

	svc := leaderboard.NewService(a.remote)
	st, err := load(ctx, a, leaderboard.Key(a.userID()), svc.Fetch)
	if err != nil {
		return trackCLIError("leaderboard", err)
	}

	heading(a.t("leaderboard"))
	if len(st.Leaders) == 0 {
		fmt.Println(a.t("no_data"))
		return nil
	}
	fmt.Printf("%-5s %-28s %8s %8s %6s\n", a.t("rank"), a.t("username"), a.t("wealth"), a.t("quest_coins"), a.t("multiplier"))
	for _, r := range st.Leaders {
		printRanked(r)
	}
	if st.Me != nil && !containsMe(st.Leaders) {
		fmt.Println(muted("  ⋮"))
		printRanked(*st.Me)
	}
	return nil
}

func containsMe(rows []leaderboard.Ranked) bool {
	for _, r := range rows {
		if r.Me {
			return true
		}
	}
	return false
}

func printRanked(r leaderboard.Ranked) {
	line := fmt.Sprintf("%-5s %-28s %8d %8d %5.1fx",
		"#"+strconv.Itoa(r.Rank), r.DisplayName(), r.Coins, r.QuestCoins, r.Multiplier)
	switch {
	case r.Me:
		line = accent(line)
	case r.Tier != leaderboard.TierNone:
		line = colored(theme.TierColor(string(r.Tier)), line)
	}
	fmt.Println(line)
}

func loadVine(cmd *cobra.Command, a *app) (rewards.Vine, *rewards.Service, error) {
	svc := rewards.NewService(a.remote, a.db)
	v, err := load(cmd.Context(), a, rewards.Key(a.userID()), svc.Load)
	if err != nil {
		// The vine can always be drawn from local coins.
		return svc.Cached(cmd.Context()), svc, nil
	}
	return *v, svc, nil
}

func runRewards(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return trackCLIError("rewards", err)
	}
	defer a.Close()

	v, _, err := loadVine(cmd, a)
	if err != nil {
		return trackCLIError("rewards", err)
	}

	heading(a.t("rewards_tree_title"))
	fmt.Printf("%s %s   %s %d/%d\n\n", a.t("available_coins"), accent(strconv.Itoa(v.Coins)), a.t("unlocked"), v.Collected, len(v.Nodes))

	for i := len(v.Nodes) - 1; i >= 0; i-- {
		n := v.Nodes[i]
		var state string
		switch {
		case n.Unlocked:
			state = colored(theme.Current.Success, "✓ "+a.t("unlocked"))
		case n.Current:
			state = accent("▸ " + a.languages.Format("need_coins", map[string]string{"cost": strconv.Itoa(n.Cost)}))
		default:
			state = muted(a.t("locked"))
		}
		fmt.Printf("  %d  %-20s %6d  %s\n", n.ID, n.Text, n.Cost, state)
	}
	pb := NewProgressBar(100, 30)
	pb.Update(int(v.Progress*100+0.5), fmt.Sprintf("%d/%d", v.Collected, len(v.Nodes)))
	fmt.Printf("\n%s\n", pb.RenderVine())
	return nil
}

func runRewardsUnlock(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return trackCLIError("rewards unlock", err)
	}
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("rewards unlock", err)
	}
	defer a.Close()

	if a.userID() == "" {
		fmt.Println(a.t("guest_notice"))
		return trackCLIError("rewards unlock", remote.ErrNoSession)
	}

	// Unlocking always starts from fresh state.
	svc := rewards.NewService(a.remote, a.db)
	v, err := svc.Load(ctx)
	if err != nil {
		return trackCLIError("rewards unlock", err)
	}

	next, err := svc.Unlock(ctx, v, id)
	if err != nil {
		switch {
		case errors.Is(err, rewards.ErrLocked):
			fmt.Println(a.t("reward_locked"))
		case errors.Is(err, rewards.ErrInsufficientCoins):
			n, _ := v.Node(id)
			fmt.Println(a.languages.Format("need_coins", map[string]string{"cost": strconv.Itoa(n.Cost)}))
		}
		return trackCLIError("rewards unlock", err)
	}

	n, _ := next.Node(id)
	telemetryClient.TrackRewardUnlocked(id, n.Cost)
	cacheVine(a, next)

	fmt.Println(accent(a.languages.Format("reward_unlocked", map[string]string{"reward": n.Text})))
	fmt.Printf("%s: kisan rewards show %d\n", a.t("redeem_code"), id)
	return nil
}

// cacheVine stores v as the latest vine so offline reads match the unlock.
func cacheVine(a *app, v rewards.Vine) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := a.db.PutCache(rewards.Key(a.userID()).String(), string(payload), time.Now()); err != nil {
		log.Warnf("cache rewards: %v", err)
	}
}

func runRewardsShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return trackCLIError("rewards show", err)
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return trackCLIError("rewards show", err)
	}
	defer a.Close()

	uid := a.userID()
	if uid == "" {
		fmt.Println(a.t("guest_notice"))
		return trackCLIError("rewards show", remote.ErrNoSession)
	}

	v, _, err := loadVine(cmd, a)
	if err != nil {
		return trackCLIError("rewards show", err)
	}
	n, ok := v.Node(id)
	if !ok {
		return trackCLIError("rewards show", fmt.Errorf("%w: %d", rewards.ErrUnknownReward, id))
	}
	if !n.Unlocked {
		return trackCLIError("rewards show", fmt.Errorf("reward %d: %w", id, rewards.ErrLocked))
	}

	heading(n.Text)
	code := rewards.RedeemCode(id, uid)
	if rewardsCopy {
		if code, err = rewards.CopyCode(id, uid); err != nil {
			printNotice(err.Error())
		} else {
			telemetryClient.TrackRewardCodeCopied(id)
			fmt.Println(muted("Copied to clipboard."))
		}
	}
	fmt.Printf("%s: %s\n", a.t("redeem_code"), accent(code))
	fmt.Println(muted(a.t("scan_at_store")))
	return nil
}
