package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/kisan/pkg/version"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy local changes to your account",
	Long: `Send queued changes (language, crop, AgriStack id) to your account.

Changes are saved on this device first and copied to your account in
the background. Run this to copy them now, or with --watch to keep
copying until interrupted.

Examples:
  kisan sync
  kisan sync --retry-failed
  kisan sync --watch`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}

var (
	syncRetryFailed bool
	syncWatch       bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncRetryFailed, "retry-failed", false, "Retry changes that previously gave up")
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "Keep syncing until interrupted")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return trackCLIError("sync", err)
	}
	defer a.Close()

	if a.userID() == "" {
		fmt.Println(a.t("guest_notice"))
		return nil
	}

	if syncRetryFailed {
		n, err := a.db.RequeueFailedMirror(ctx)
		if err != nil {
			return trackCLIError("sync", fmt.Errorf("requeue failed changes: %w", err))
		}
		if n > 0 {
			fmt.Printf("Retrying %d change(s).\n", n)
		}
	}

	if syncWatch {
		fmt.Println(muted(a.t("syncing") + " (Ctrl+C to stop)"))
		a.mirror.Start(ctx)
		<-ctx.Done()
		_ = a.mirror.Close()
		return nil
	}

	rep, err := a.mirror.DrainOnce(ctx)
	if err != nil {
		return trackCLIError("sync", err)
	}

	stats, err := a.db.GetStats()
	if err != nil {
		return trackCLIError("sync", fmt.Errorf("database stats: %w", err))
	}

	fmt.Printf("Synced:   %d\n", rep.Done)
	fmt.Printf("Pending:  %d\n", stats.MirrorPending)
	if stats.MirrorFailed > 0 {
		fmt.Printf("Failed:   %d  %s\n", stats.MirrorFailed, muted("(kisan sync --retry-failed)"))
	}
	return nil
}
