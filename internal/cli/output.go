package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

const rule = "──────────────────────────────────────────────────"

func heading(title string) {
	style := lipgloss.NewStyle().Bold(true).Foreground(theme.Current.Primary)
	fmt.Println(style.Render(title))
	fmt.Println(rule)
}

func printNotice(msg string) {
	style := lipgloss.NewStyle().Foreground(theme.Current.Warning)
	fmt.Println(style.Render("! " + msg))
}

func muted(s string) string {
	return lipgloss.NewStyle().Foreground(theme.Current.TextMuted).Render(s)
}

func accent(s string) string {
	return lipgloss.NewStyle().Foreground(theme.Current.Accent).Bold(true).Render(s)
}

func colored(c lipgloss.AdaptiveColor, s string) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// formatTimeSince returns a human-readable time difference.
func formatTimeSince(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// formatPrice renders a rupee amount with two decimals.
func formatPrice(p float64) string {
	return fmt.Sprintf("₹%.2f", p)
}
