package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/internal/cli/prompts"
	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/onboarding"
	"github.com/asteroid-belt/kisan/internal/tui"
	"github.com/asteroid-belt/kisan/internal/tui/design"
	"github.com/asteroid-belt/kisan/internal/tui/views"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Choose your language and crop",
	Long: `Launch the interactive onboarding wizard.

Pick a display language, then the crop you grow. Progress is saved
after every step, so an interrupted wizard resumes where it stopped.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

var languageCmd = &cobra.Command{
	Use:   "language [code]",
	Short: "Show or set the display language",
	Long: `Set the display language, e.g. 'kisan language hi'.

Without an argument the current language and the available ones are
shown, or a picker opens when running in a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLanguage,
}

var cropCmd = &cobra.Command{
	Use:   "crop [id]",
	Short: "Show or set the crop you grow",
	Long: `Set your crop, e.g. 'kisan crop black_pepper'.

Quests and rewards are tailored to the selected crop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrop,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear local onboarding progress",
	Long: `Forget the chosen language, crop and first-reward marker on this
device, as on a fresh install. Your account and session are kept.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

var resetYes bool

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
}

func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// runLanding decides where the user continues and takes them there.
func runLanding(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("kisan", err)
	}
	defer a.Close()

	telemetryClient.TrackAppStarted("cli", a.userID() != "", a.languages.Language())

	route, err := a.onboarding.Landing(ctx)
	if err != nil {
		return trackCLIError("kisan", fmt.Errorf("decide landing route: %w", err))
	}
	log.Debugf("landing route: %s", route)

	if (route == onboarding.NeedsLanguage || route == onboarding.NeedsCrop) && interactive() {
		route, err = runWizard(cmd, a, route)
		if err != nil {
			return trackCLIError("kisan", err)
		}
	}

	switch route {
	case onboarding.Home:
		showStartupNotification(ctx, a.db, os.Stdout)
		return showDashboard(cmd, a)
	case onboarding.NeedsAuth:
		fmt.Println(design.Logo(80))
		fmt.Println(a.t("guest_notice"))
	default:
		fmt.Println(design.Logo(80))
	}
	fmt.Printf("\nNext: %s\n", route.Command())
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("start", err)
	}
	defer a.Close()

	route, err := a.onboarding.Landing(ctx)
	if err != nil {
		return trackCLIError("start", err)
	}
	if route > onboarding.NeedsCrop {
		// Already past the wizard; walk through it again from the top.
		route = onboarding.NeedsLanguage
	}

	route, err = runWizard(cmd, a, route)
	if err != nil {
		return trackCLIError("start", err)
	}
	fmt.Printf("Next: %s\n", route.Command())
	return nil
}

func runWizard(cmd *cobra.Command, a *app, start onboarding.Route) (onboarding.Route, error) {
	route, err := tui.Run(cmd.Context(), tui.Options{
		Onboarder: a.onboarding,
		Translate: views.Translator(a.t),
		Languages: a.languages.Supported(),
		Crops:     onboarding.Crops,
		Language:  a.languages.Language(),
		Start:     start,
		Telemetry: telemetryClient,
	})
	if errors.Is(err, tui.ErrAborted) {
		return route, fmt.Errorf("%w; run `kisan start` to continue", err)
	}
	return route, err
}

func runLanguage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("language", err)
	}
	defer a.Close()

	var code string
	switch {
	case len(args) == 1:
		code = args[0]
	case interactive():
		code, err = prompts.RunSelect(a.t("choose_language"),
			prompts.BuildLanguageOptions(a.languages.Supported()), a.languages.Language())
		if err != nil {
			return trackCLIError("language", err)
		}
	default:
		heading(a.t("choose_language"))
		for _, opt := range a.languages.Supported() {
			marker := "  "
			if opt.Code == a.languages.Language() {
				marker = accent("▸ ")
			}
			line := fmt.Sprintf("%s%-4s %s", marker, opt.Code, opt.Name)
			if opt.Locked {
				line += muted(" (coming soon)")
			}
			fmt.Println(line)
		}
		return nil
	}

	previous := a.languages.Language()
	route, err := a.onboarding.ChooseLanguage(ctx, code)
	if err != nil {
		return trackCLIError("language", err)
	}
	if previous != a.languages.Language() {
		telemetryClient.TrackLanguageChanged(a.languages.Language(), previous)
	}

	fmt.Println(a.languages.Format("language_set", map[string]string{"language": a.languages.Language()}))
	if route != onboarding.Home {
		fmt.Printf("Next: %s\n", route.Command())
	}
	return nil
}

func runCrop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("crop", err)
	}
	defer a.Close()

	var id string
	switch {
	case len(args) == 1:
		id = args[0]
	case interactive():
		current, _, _ := a.db.GetKV(ctx, models.KVUserSelectedCrop)
		id, err = prompts.RunSelect(a.t("choose_crop"), prompts.BuildCropOptions(onboarding.Crops), current)
		if err != nil {
			return trackCLIError("crop", err)
		}
	default:
		heading(a.t("choose_crop"))
		for _, c := range onboarding.Crops {
			fmt.Printf("  %-14s %s\n", c.ID, c.Name)
		}
		return nil
	}

	route, err := a.onboarding.ChooseCrop(ctx, id)
	if err != nil {
		if errors.Is(err, onboarding.ErrOutOfOrder) {
			fmt.Printf("Next: %s\n", route.Command())
		}
		return trackCLIError("crop", err)
	}

	crop, _ := onboarding.LookupCrop(id)
	fmt.Println(a.languages.Format("crop_set", map[string]string{"crop": crop.Name}))
	if route != onboarding.Home {
		fmt.Printf("Next: %s\n", route.Command())
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("reset", err)
	}
	defer a.Close()

	if !resetYes && interactive() {
		ok, err := prompts.RunConfirm("Reset onboarding?", "Language, crop and first-reward progress on this device will be cleared.")
		if err != nil {
			return trackCLIError("reset", err)
		}
		if !ok {
			return nil
		}
	}

	if err := a.onboarding.Reset(ctx); err != nil {
		return trackCLIError("reset", fmt.Errorf("reset onboarding: %w", err))
	}
	fmt.Println("Onboarding progress cleared.")
	fmt.Printf("Next: %s\n", onboarding.NeedsLanguage.Command())
	return nil
}
