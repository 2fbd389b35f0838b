// Package tui runs the interactive onboarding wizard.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/onboarding"
	"github.com/asteroid-belt/kisan/internal/telemetry"
	"github.com/asteroid-belt/kisan/internal/tui/theme"
	"github.com/asteroid-belt/kisan/internal/tui/views"
)

// ErrAborted is returned by Run when the user quits before finishing.
var ErrAborted = errors.New("onboarding cancelled")

// ViewType represents the current view.
type ViewType int

const (
	ViewLanguage ViewType = iota
	ViewCrop
	ViewDone
)

func (v ViewType) String() string {
	switch v {
	case ViewLanguage:
		return "onboarding_language"
	case ViewCrop:
		return "onboarding_crop"
	case ViewDone:
		return "onboarding_done"
	default:
		return "unknown"
	}
}

// Onboarder records the onboarding steps chosen in the wizard.
type Onboarder interface {
	ChooseLanguage(ctx context.Context, code string) (onboarding.Route, error)
	ChooseCrop(ctx context.Context, cropID string) (onboarding.Route, error)
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// stepDoneMsg carries the result of a recorded step.
type stepDoneMsg struct {
	route onboarding.Route
	err   error
}

// Options configures the wizard.
type Options struct {
	Onboarder Onboarder
	Translate views.Translator
	Languages []i18n.LanguageOption
	Crops     []onboarding.Crop
	// Language preselects the picker.
	Language  string
	Start     onboarding.Route
	Telemetry telemetry.Client
}

// Model is the main TUI model.
type Model struct {
	ctx       context.Context
	onboarder Onboarder
	telemetry telemetry.Client

	currentView ViewType
	route       onboarding.Route
	busy        bool
	err         error
	aborted     bool

	languageView *views.OnboardingLanguageView
	cropView     *views.OnboardingCropView
	doneView     *views.OnboardingDoneView

	width  int
	height int
}

// NewModel creates the wizard model starting at opts.Start.
func NewModel(ctx context.Context, opts Options) *Model {
	tc := opts.Telemetry
	if tc == nil {
		tc = telemetry.NewNoop()
	}
	crops := opts.Crops
	if crops == nil {
		crops = onboarding.Crops
	}
	m := &Model{
		ctx:          ctx,
		onboarder:    opts.Onboarder,
		telemetry:    tc,
		route:        opts.Start,
		languageView: views.NewOnboardingLanguageView(opts.Translate, opts.Languages),
		cropView:     views.NewOnboardingCropView(opts.Translate, crops),
		doneView:     views.NewOnboardingDoneView(opts.Translate),
	}
	m.languageView.Init(opts.Language)
	m.currentView = viewFor(opts.Start)
	m.doneView.Init(opts.Start)
	return m
}

func viewFor(r onboarding.Route) ViewType {
	switch r {
	case onboarding.NeedsLanguage:
		return ViewLanguage
	case onboarding.NeedsCrop:
		return ViewCrop
	default:
		return ViewDone
	}
}

// Route is where the user should continue after the wizard.
func (m *Model) Route() onboarding.Route { return m.route }

// CurrentView returns the active view.
func (m *Model) CurrentView() ViewType { return m.currentView }

// Aborted reports whether the user quit before finishing.
func (m *Model) Aborted() bool { return m.aborted }

// Err returns the last step error shown to the user.
func (m *Model) Err() error { return m.err }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.currentView == ViewCrop {
		return m.cropView.Init()
	}
	return nil
}

func (m *Model) navigate(route onboarding.Route) tea.Cmd {
	prev := m.currentView
	m.route = route
	m.currentView = viewFor(route)
	m.telemetry.TrackViewNavigated(m.currentView.String(), prev.String())
	switch m.currentView {
	case ViewCrop:
		return m.cropView.Init()
	case ViewDone:
		m.doneView.Init(route)
	}
	return nil
}

func (m *Model) chooseLanguage(code string) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		route, err := m.onboarder.ChooseLanguage(m.ctx, code)
		return stepDoneMsg{route: route, err: err}
	}
}

func (m *Model) chooseCrop(id string) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		route, err := m.onboarder.ChooseCrop(m.ctx, id)
		return stepDoneMsg{route: route, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.languageView.SetSize(msg.Width, msg.Height)
		m.cropView.SetSize(msg.Width, msg.Height)
		m.doneView.SetSize(msg.Width, msg.Height)
		return m, nil

	case stepDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		return m, m.navigate(msg.route)

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.aborted = m.currentView != ViewDone
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.currentView {
	case ViewLanguage:
		done, skipped := m.languageView.Update(msg.String())
		if skipped {
			m.aborted = true
			return m, tea.Quit
		}
		if done {
			return m, m.chooseLanguage(m.languageView.Selected().Code)
		}

	case ViewCrop:
		done, skipped, cmd := m.cropView.Update(msg)
		if skipped {
			m.aborted = true
			return m, tea.Quit
		}
		if done {
			crop, ok := m.cropView.Selected()
			if ok {
				return m, m.chooseCrop(crop.ID)
			}
		}
		return m, cmd

	case ViewDone:
		if m.doneView.Update(msg.String()) {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.currentView {
	case ViewLanguage:
		body = m.languageView.View()
	case ViewCrop:
		body = m.cropView.View()
	default:
		body = m.doneView.View()
	}
	if m.err != nil {
		errLine := lipgloss.NewStyle().Foreground(theme.Current.Error).Render("✗ " + m.err.Error())
		body = lipgloss.JoinVertical(lipgloss.Left, body, errLine)
	}
	return body
}

// Run shows the wizard and returns where the user should continue.
func Run(ctx context.Context, opts Options) (onboarding.Route, error) {
	m := NewModel(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return opts.Start, fmt.Errorf("run onboarding: %w", err)
	}
	fm := final.(*Model)
	if fm.Aborted() {
		return fm.Route(), ErrAborted
	}
	return fm.Route(), nil
}
