package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/schemes"
)

var schemesCmd = &cobra.Command{
	Use:   "schemes [id]",
	Short: "Browse government schemes for farmers",
	Long: `List government schemes, or show one in full with its benefits,
eligibility and how to apply, e.g. 'kisan schemes pm-kisan'.

Schemes are bundled with kisan and work offline.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchemes,
}

func runSchemes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("schemes", err)
	}
	defer a.Close()

	catalog, err := schemes.Load()
	if err != nil {
		return trackCLIError("schemes", fmt.Errorf("load schemes: %w", err))
	}
	lang := a.languages.Language()

	if len(args) == 0 {
		heading(a.t("government_schemes"))
		for _, s := range catalog.List(lang) {
			fmt.Printf("%s %-14s %s\n", s.Icon, s.ID, accent(s.Title))
			fmt.Printf("  %-14s %s\n", "", muted(s.Description))
		}
		fmt.Println(muted("\nkisan schemes <id>"))
		return nil
	}

	s, err := catalog.Get(args[0], lang)
	if err != nil {
		return trackCLIError("schemes", err)
	}
	out, err := schemes.Render(s, 80)
	if err != nil {
		log.Debugf("render scheme %s: %v", s.ID, err)
	}
	fmt.Print(out)
	return nil
}
