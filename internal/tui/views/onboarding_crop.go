package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/asteroid-belt/kisan/internal/onboarding"
)

// OnboardingCropView is the searchable crop picker.
type OnboardingCropView struct {
	t      Translator
	crops  []onboarding.Crop
	search textinput.Model
	cursor int
	width  int
	height int
}

// NewOnboardingCropView creates a crop picker over crops.
func NewOnboardingCropView(t Translator, crops []onboarding.Crop) *OnboardingCropView {
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Prompt = "🔍 "
	return &OnboardingCropView{t: t, crops: crops, search: ti}
}

// Init clears the search and focuses it.
func (v *OnboardingCropView) Init() tea.Cmd {
	v.search.Placeholder = v.t("search_placeholder")
	v.search.SetValue("")
	v.cursor = 0
	return v.search.Focus()
}

// SetSize sets the width and height of the view.
func (v *OnboardingCropView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Filtered returns the crops matching the search text.
func (v *OnboardingCropView) Filtered() []onboarding.Crop {
	q := strings.ToLower(strings.TrimSpace(v.search.Value()))
	if q == "" {
		return v.crops
	}
	var out []onboarding.Crop
	for _, c := range v.crops {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(c.ID, q) {
			out = append(out, c)
		}
	}
	return out
}

// Update handles key input. Returns (should continue, was skipped, cmd).
// Keys other than navigation go to the search box.
func (v *OnboardingCropView) Update(msg tea.KeyMsg) (bool, bool, tea.Cmd) {
	switch msg.String() {
	case "up":
		if v.cursor > 0 {
			v.cursor--
		}
		return false, false, nil
	case "down":
		if v.cursor < len(v.Filtered())-1 {
			v.cursor++
		}
		return false, false, nil
	case "enter":
		return len(v.Filtered()) > 0, false, nil
	case "esc":
		return true, true, nil
	}

	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	if n := len(v.Filtered()); v.cursor >= n {
		v.cursor = 0
	}
	return false, false, cmd
}

// Selected returns the crop under the cursor.
func (v *OnboardingCropView) Selected() (onboarding.Crop, bool) {
	crops := v.Filtered()
	if len(crops) == 0 {
		return onboarding.Crop{}, false
	}
	return crops[v.cursor], true
}

// View renders the crop picker.
func (v *OnboardingCropView) View() string {
	title := titleStyle().Render("🌱 " + v.t("choose_crop"))
	subtitle := subtitleStyle().Render(v.t("choose_your_crop_in_hindi"))

	crops := v.Filtered()
	var list string
	if len(crops) == 0 {
		list = subtitleStyle().Render(v.t("no_crops"))
	} else {
		items := make([]string, 0, len(crops))
		for i, c := range crops {
			items = append(items, itemStyle(i == v.cursor, false).Render(c.Name))
		}
		list = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		v.search.View(),
		"",
		list,
		"",
		v.GetKeyboardCommands().HelpLine(),
	)
	return centerDialog(content, v.width, v.height)
}

// GetKeyboardCommands returns the keyboard commands for this view.
func (v *OnboardingCropView) GetKeyboardCommands() ViewCommands {
	return ViewCommands{
		ViewName: "Crop",
		Commands: []Command{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Type", Description: "Search"},
			{Key: "Enter", Description: v.t("confirm")},
			{Key: "Esc", Description: "Quit"},
		},
	}
}
