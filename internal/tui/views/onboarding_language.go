package views

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/asteroid-belt/kisan/internal/i18n"
)

// Translator looks up a UI string in the active language.
type Translator func(key string) string

// OnboardingLanguageView is the language picker.
type OnboardingLanguageView struct {
	t       Translator
	options []i18n.LanguageOption
	cursor  int
	notice  string
	width   int
	height  int
}

// NewOnboardingLanguageView creates a language picker over options.
func NewOnboardingLanguageView(t Translator, options []i18n.LanguageOption) *OnboardingLanguageView {
	return &OnboardingLanguageView{t: t, options: options}
}

// Init moves the cursor to code, if offered.
func (v *OnboardingLanguageView) Init(code string) {
	v.notice = ""
	for i, opt := range v.options {
		if opt.Code == code {
			v.cursor = i
			return
		}
	}
}

// SetSize sets the width and height of the view.
func (v *OnboardingLanguageView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Update handles key input. Returns (should continue, was skipped).
// Locked languages cannot be confirmed.
func (v *OnboardingLanguageView) Update(key string) (bool, bool) {
	switch key {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
		v.notice = ""
	case "down", "j":
		if v.cursor < len(v.options)-1 {
			v.cursor++
		}
		v.notice = ""
	case "enter", " ":
		if len(v.options) == 0 {
			return false, false
		}
		if v.options[v.cursor].Locked {
			v.notice = v.options[v.cursor].Name + " coming soon"
			return false, false
		}
		return true, false
	case "esc":
		return true, true
	}
	return false, false
}

// Selected returns the option under the cursor.
func (v *OnboardingLanguageView) Selected() i18n.LanguageOption {
	if len(v.options) == 0 {
		return i18n.LanguageOption{}
	}
	return v.options[v.cursor]
}

// View renders the language picker.
func (v *OnboardingLanguageView) View() string {
	title := titleStyle().Render("🌾 " + v.t("choose_language"))
	subtitle := subtitleStyle().Render(v.t("choose_your_language_in_hindi"))

	items := make([]string, 0, len(v.options))
	for i, opt := range v.options {
		label := opt.Name
		if opt.Locked {
			label += " 🔒"
		}
		items = append(items, itemStyle(i == v.cursor, opt.Locked).Render(label))
	}

	parts := []string{title, subtitle, lipgloss.JoinVertical(lipgloss.Left, items...)}
	if v.notice != "" {
		parts = append(parts, "", subtitleStyle().Render(v.notice))
	}
	parts = append(parts, "", v.GetKeyboardCommands().HelpLine())
	return centerDialog(lipgloss.JoinVertical(lipgloss.Left, parts...), v.width, v.height)
}

// GetKeyboardCommands returns the keyboard commands for this view.
func (v *OnboardingLanguageView) GetKeyboardCommands() ViewCommands {
	return ViewCommands{
		ViewName: "Language",
		Commands: []Command{
			{Key: "↑↓, k/j", Description: "Navigate"},
			{Key: "Enter", Description: v.t("confirm")},
			{Key: "Esc", Description: "Quit"},
		},
	}
}
