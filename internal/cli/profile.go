package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/onboarding"
	"github.com/asteroid-belt/kisan/internal/profile"
	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile and sustainability score",
	Args:  cobra.NoArgs,
	RunE:  runProfile,
}

var profileAvatarCmd = &cobra.Command{
	Use:   "avatar <file>",
	Short: "Upload a profile picture",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileAvatar,
}

var profileLinkCmd = &cobra.Command{
	Use:   "link <agristack-id>",
	Short: "Link your AgriStack farmer id",
	Long: `Link your AgriStack farmer id, e.g. 'kisan profile link AGRI-001'.

The land record is shown from the farmer registry. Ids not in the
registry are linked with limited details.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileLink,
}

func init() {
	profileCmd.AddCommand(profileAvatarCmd, profileLinkCmd)
}

func bandColor(b profile.Band) string {
	switch b {
	case profile.BandExcellent:
		return colored(theme.Current.Success, string(b))
	case profile.BandGood:
		return colored(theme.Current.Accent, string(b))
	default:
		return colored(theme.Current.Warning, string(b))
	}
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("profile", err)
	}
	defer a.Close()

	if a.userID() == "" {
		fmt.Println(a.t("guest_notice"))
		return nil
	}

	svc := profile.NewService(a.remote, a.db, a.mirror)
	ov, err := load(ctx, a, profile.Key(a.userID()), svc.Fetch)
	if err != nil {
		return trackCLIError("profile", err)
	}
	p := ov.Profile

	heading(a.t("profile"))
	name := p.FullName
	if name == "" {
		name = "Farmer"
	}
	fmt.Println(accent(name))
	if p.SelectedCrop != "" {
		if crop, err := onboarding.LookupCrop(p.SelectedCrop); err == nil {
			fmt.Printf("%-22s %s\n", "CROP", crop.Name)
		}
	}
	fmt.Printf("%-22s %d\n", a.t("wealth"), p.Coins)
	fmt.Printf("%-22s %d\n", a.t("quest_coins"), p.QuestCoins)
	fmt.Printf("%-22s %d\n", a.t("xp"), p.XP)
	if p.AvatarURL != "" {
		fmt.Printf("%-22s %s\n", "AVATAR", muted(p.AvatarURL))
	}

	fmt.Println()
	pb := NewProgressBar(100, 20)
	pb.Update(ov.Score, "")
	fmt.Printf("%-22s %s %s\n", a.t("sustainability_score"), pb.Render(), bandColor(ov.Band))
	fmt.Printf("  %s %d/%d   %s %d/%d\n",
		a.t("lessons"), ov.Stats.CompletedLessons, ov.Stats.TotalLessons,
		a.t("monthly_quests"), ov.Stats.CompletedQuests, ov.Stats.TotalQuests)

	agri := p.AgriStackID
	if agri == "" {
		agri, _, _ = a.db.GetKV(ctx, models.KVAgriStackID)
	}
	if agri != "" {
		if link, err := profile.LookupAgriStack(profile.Registry, agri); err == nil {
			fmt.Println()
			printFarmRecord(a, link)
		}
	} else {
		fmt.Println(muted("\nLink your farm: kisan profile link <agristack-id>"))
	}
	return nil
}

func printFarmRecord(a *app, link profile.Link) {
	fmt.Printf("AGRISTACK %s\n", accent(link.ID))
	fmt.Printf("  %-12s %s\n", a.t("land_size"), link.Record.LandSize)
	fmt.Printf("  %-12s %s\n", "LOCATION", link.Record.Location)
	fmt.Printf("  %-12s %s\n", "SOIL", link.Record.SoilType)
	fmt.Printf("  %-12s %s\n", "CROP", link.Record.PrimaryCrop)
	if link.Limited {
		fmt.Println(muted("  Not found in the registry; limited details shown."))
	}
	fmt.Println(muted("  " + a.t("data_note")))
}

func runProfileAvatar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("profile avatar", err)
	}
	defer a.Close()

	svc := profile.NewService(a.remote, a.db, a.mirror)
	res, err := svc.UploadAvatar(ctx, args[0])
	if err != nil {
		return trackCLIError("profile avatar", err)
	}
	telemetryClient.TrackAvatarUploaded(res.Fallback)

	if res.Fallback {
		printNotice("Upload failed; your profile points at the local file for now.")
	}
	fmt.Printf("Avatar: %s\n", res.URL)
	return nil
}

func runProfileLink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("profile link", err)
	}
	defer a.Close()

	svc := profile.NewService(a.remote, a.db, a.mirror)
	link, err := svc.LinkAgriStack(ctx, strings.Join(args, ""))
	if err != nil {
		return trackCLIError("profile link", err)
	}
	printFarmRecord(a, link)
	if a.userID() == "" {
		fmt.Println(muted(a.t("guest_notice")))
	}
	return nil
}
