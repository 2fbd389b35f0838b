package views

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/asteroid-belt/kisan/internal/onboarding"
	"github.com/asteroid-belt/kisan/internal/tui/design"
	"github.com/asteroid-belt/kisan/internal/tui/theme"
)

// OnboardingDoneView tells the user where onboarding continues.
type OnboardingDoneView struct {
	t      Translator
	route  onboarding.Route
	width  int
	height int
}

// NewOnboardingDoneView creates the closing view.
func NewOnboardingDoneView(t Translator) *OnboardingDoneView {
	return &OnboardingDoneView{t: t}
}

// Init sets the route the user landed on.
func (v *OnboardingDoneView) Init(route onboarding.Route) {
	v.route = route
}

// SetSize sets the width and height of the view.
func (v *OnboardingDoneView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Update handles key input. Returns true when the wizard should exit.
func (v *OnboardingDoneView) Update(key string) bool {
	switch key {
	case "enter", "esc", "q":
		return true
	}
	return false
}

// View renders the closing view.
func (v *OnboardingDoneView) View() string {
	logo := lipgloss.NewStyle().Foreground(theme.Current.Primary).Render(design.Logo(v.width))

	next := lipgloss.NewStyle().Foreground(theme.Current.Text).Render("Next: ")
	cmd := lipgloss.NewStyle().Foreground(theme.Current.Accent).Bold(true).Render(v.route.Command())

	content := lipgloss.JoinVertical(lipgloss.Left,
		logo,
		"",
		titleStyle().Render("✅ "+v.t("confirm")),
		next+cmd,
		"",
		v.GetKeyboardCommands().HelpLine(),
	)
	return centerDialog(content, v.width, v.height)
}

// GetKeyboardCommands returns the keyboard commands for this view.
func (v *OnboardingDoneView) GetKeyboardCommands() ViewCommands {
	return ViewCommands{
		ViewName: "Done",
		Commands: []Command{
			{Key: "Enter", Description: "Exit"},
		},
	}
}
