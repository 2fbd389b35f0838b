package views

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

// Command represents a single keyboard command.
type Command struct {
	Key         string
	Description string
}

// ViewCommands represents commands for a specific view.
type ViewCommands struct {
	ViewName string
	Commands []Command
}

// HelpLine renders the commands as a single footer line.
func (vc ViewCommands) HelpLine() string {
	keyStyle := lipgloss.NewStyle().Foreground(theme.Current.Accent).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(theme.Current.TextMuted)

	parts := make([]string, 0, len(vc.Commands))
	for _, c := range vc.Commands {
		parts = append(parts, keyStyle.Render(c.Key)+" "+descStyle.Render(c.Description))
	}
	return strings.Join(parts, descStyle.Render("  •  "))
}
