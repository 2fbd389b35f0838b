package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/internal/market"
	"github.com/asteroid-belt/kisan/internal/models"
	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

var marketCmd = &cobra.Command{
	Use:   "market [search]",
	Short: "Show mandi prices",
	Long: `Show the latest mandi spot prices with their daily trend.

An optional search narrows the list, e.g. 'kisan market pepper'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMarket,
}

var marketUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh prices from the open-data feed",
	Long: `Pull the latest daily prices from the data.gov.in mandi dataset and
store one row per tracked crop.

Requires DATA_GOV_API_KEY and a signed-in account with write access.`,
	Args: cobra.NoArgs,
	RunE: runMarketUpdate,
}

func init() {
	marketCmd.AddCommand(marketUpdateCmd)
}

func trendArrow(trend string) string {
	switch trend {
	case models.TrendUp:
		return "▲"
	case models.TrendDown:
		return "▼"
	default:
		return "■"
	}
}

func printPrice(a *app, p models.MarketPrice) {
	change := a.t("stable")
	if p.Trend != models.TrendStable && p.Trend != "" {
		change = formatPrice(p.Change)
	}
	fmt.Printf("  %-16s %12s  %s\n",
		p.Name,
		formatPrice(p.Price),
		colored(theme.TrendColor(p.Trend), trendArrow(p.Trend)+" "+change))
}

func runMarket(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("market", err)
	}
	defer a.Close()

	svc := market.NewService(a.remote, nil)
	prices, err := load(ctx, a, market.Key, svc.Fetch)
	if err != nil {
		return trackCLIError("market", err)
	}

	list := *prices
	if len(args) == 1 {
		list = market.Filter(list, args[0])
	}

	heading(a.t("all_india_prices"))
	fmt.Println(muted(a.t("price_per_unit") + " " + market.Unit))
	fmt.Println()
	if len(list) == 0 {
		fmt.Println(a.t("no_crops"))
		return nil
	}
	for _, p := range list {
		printPrice(a, p)
	}

	var latest models.MarketPrice
	for _, p := range list {
		if p.LastUpdated.After(latest.LastUpdated) {
			latest = p
		}
	}
	fmt.Printf("\n%s\n", muted(a.t("price_source_tip")+" "+formatTimeSince(latest.LastUpdated)))
	return nil
}

func runMarketUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("market update", err)
	}
	defer a.Close()

	if a.cfg.Market.APIKey == "" {
		return trackCLIError("market update", market.ErrMissingAPIKey)
	}

	svc := market.NewService(a.remote, market.NewFeed(a.cfg.Market, nil))
	fmt.Println(muted(a.t("syncing")))
	rep, err := svc.UpdatePrices(ctx)
	if err != nil {
		return trackCLIError("market update", err)
	}
	telemetryClient.TrackMarketRefreshed(len(rep.Updated), "data.gov.in")

	fmt.Printf("Records fetched: %d\n", rep.Records)
	fmt.Printf("Updated:         %d (%s)\n", len(rep.Updated), strings.Join(rep.Updated, ", "))
	if len(rep.Missing) > 0 {
		fmt.Printf("Not in feed:     %s\n", strings.Join(rep.Missing, ", "))
	}
	if len(rep.Failed) > 0 {
		fmt.Printf("Failed:          %s\n", strings.Join(rep.Failed, ", "))
		return trackCLIError("market update", fmt.Errorf("update failed for %d crops", len(rep.Failed)))
	}
	return nil
}
