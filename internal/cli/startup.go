package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/asteroid-belt/kisan/internal/models"
)

// mirrorLister is the part of *db.DB the startup notice reads.
type mirrorLister interface {
	ListMirror(ctx context.Context, status models.MirrorStatus) ([]models.MirrorItem, error)
}

// showStartupNotification reports local changes that were never copied to the
// account. Returns true if a notice was shown.
func showStartupNotification(ctx context.Context, store mirrorLister, w io.Writer) bool {
	if store == nil {
		return false
	}

	failed, err := store.ListMirror(ctx, models.MirrorFailed)
	if err != nil || len(failed) == 0 {
		return false
	}

	changeWord := "change"
	if len(failed) > 1 {
		changeWord = "changes"
	}
	_, _ = fmt.Fprintf(w, "\n%d %s could not be saved to your account:\n", len(failed), changeWord)
	for _, item := range failed {
		_, _ = fmt.Fprintf(w, "  %-30s %s\n", item.TargetTable+"."+item.TargetColumn, item.Value)
	}
	_, _ = fmt.Fprintf(w, "\nRun `kisan sync --retry-failed` to try again.\n\n")
	return true
}
