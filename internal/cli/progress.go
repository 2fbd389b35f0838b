package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

// ProgressBar renders a CLI progress bar.
type ProgressBar struct {
	completed int
	total     int
	label     string
	width     int
}

// NewProgressBar creates a new progress bar with the specified total and width.
func NewProgressBar(total int, width int) *ProgressBar {
	if width <= 0 {
		width = 15
	}
	return &ProgressBar{
		total: total,
		width: width,
	}
}

// Update sets the current progress and label.
func (p *ProgressBar) Update(completed int, label string) {
	p.completed = completed
	p.label = label
}

func (p *ProgressBar) cells() string {
	percent := float64(p.completed) / float64(p.total)
	if percent > 1 {
		percent = 1
	}
	if percent < 0 {
		percent = 0
	}
	filled := int(float64(p.width) * percent)
	return strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
}

// Render returns the formatted progress bar, e.g. for lesson progress.
func (p *ProgressBar) Render() string {
	if p.total == 0 {
		return ""
	}

	progressStyle := lipgloss.NewStyle().
		Foreground(theme.Current.Primary).
		Bold(true)

	barStyle := lipgloss.NewStyle().
		Foreground(theme.Current.Primary)

	countStyle := lipgloss.NewStyle().
		Foreground(theme.Current.TextMuted)

	return barStyle.Render("["+p.cells()+"]") +
		countStyle.Render(fmt.Sprintf(" %d/%d ", p.completed, p.total)) +
		progressStyle.Render(p.label)
}

// RenderVine returns the rewards-vine variant (harvest gold, percent).
func (p *ProgressBar) RenderVine() string {
	if p.total == 0 {
		return ""
	}

	vineStyle := lipgloss.NewStyle().
		Foreground(theme.Current.Accent).
		Bold(true)

	countStyle := lipgloss.NewStyle().
		Foreground(theme.Current.TextMuted)

	percent := p.completed * 100 / p.total
	return vineStyle.Render("🌱 ["+p.cells()+"]") +
		countStyle.Render(fmt.Sprintf(" %d%% ", percent)) +
		vineStyle.Render(p.label)
}
