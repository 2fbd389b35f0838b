package views

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

// centerDialog wraps content in a bordered box centered in width x height.
func centerDialog(content string, width, height int) string {
	maxWidth := width * 80 / 100
	if maxWidth < 50 {
		maxWidth = 50
	}

	dialog := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Current.Primary).
		Padding(1, 3).
		MaxWidth(maxWidth)

	rendered := dialog.Render(content)

	paddingLeft := (width - lipgloss.Width(rendered)) / 2
	if paddingLeft < 0 {
		paddingLeft = 0
	}
	paddingTop := (height - lipgloss.Height(rendered)) / 2
	if paddingTop < 1 {
		paddingTop = 1
	}

	return lipgloss.NewStyle().
		Padding(paddingTop, paddingLeft).
		Render(rendered)
}

func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Current.Primary).
		MarginBottom(1)
}

func subtitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Current.TextMuted).
		MarginBottom(1)
}

func itemStyle(selected, locked bool) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(theme.Current.Text)
	if locked {
		s = s.Foreground(theme.Current.TextMuted)
	}
	if selected {
		s = s.
			Background(theme.Current.Overlay).
			Foreground(theme.Current.Accent).
			Bold(true).
			Padding(0, 1)
	}
	return s
}
