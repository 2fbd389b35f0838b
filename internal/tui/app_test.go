package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/onboarding"
)

type fakeOnboarder struct {
	languages []string
	crops     []string
	cropRoute onboarding.Route
	err       error
}

func (f *fakeOnboarder) ChooseLanguage(ctx context.Context, code string) (onboarding.Route, error) {
	if f.err != nil {
		return onboarding.NeedsLanguage, f.err
	}
	f.languages = append(f.languages, code)
	return onboarding.NeedsCrop, nil
}

func (f *fakeOnboarder) ChooseCrop(ctx context.Context, cropID string) (onboarding.Route, error) {
	f.crops = append(f.crops, cropID)
	return f.cropRoute, nil
}

func identity(key string) string { return key }

var languages = []i18n.LanguageOption{
	{Code: "hi", Name: "HINDI"},
	{Code: "en", Name: "ENGLISH"},
	{Code: "ta", Name: "TAMIL", Locked: true},
}

func newTestModel(f *fakeOnboarder, start onboarding.Route) *Model {
	m := NewModel(context.Background(), Options{
		Onboarder: f,
		Translate: identity,
		Languages: languages,
		Start:     start,
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

// send delivers msg. For Enter the resulting step command is run and its
// result fed back; other commands (cursor blink) are dropped.
func send(m *Model, msg tea.KeyMsg) {
	_, cmd := m.Update(msg)
	if cmd == nil || msg.Type != tea.KeyEnter {
		return
	}
	if out := cmd(); out != nil {
		if _, ok := out.(stepDoneMsg); ok {
			m.Update(out)
		}
	}
}

func keyMsg(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestWizard_LanguageThenCrop(t *testing.T) {
	f := &fakeOnboarder{cropRoute: onboarding.NeedsFirstReward}
	m := newTestModel(f, onboarding.NeedsLanguage)
	require.Equal(t, ViewLanguage, m.CurrentView())

	send(m, keyMsg(tea.KeyDown))
	send(m, keyMsg(tea.KeyEnter))
	assert.Equal(t, []string{"en"}, f.languages)
	require.Equal(t, ViewCrop, m.CurrentView())

	for _, r := range "ric" {
		send(m, runes(string(r)))
	}
	send(m, keyMsg(tea.KeyEnter))
	assert.Equal(t, []string{"rice"}, f.crops)
	assert.Equal(t, ViewDone, m.CurrentView())
	assert.Equal(t, onboarding.NeedsFirstReward, m.Route())
	assert.Contains(t, m.View(), "kisan quest complete 1")
	assert.False(t, m.Aborted())
}

func TestWizard_LockedLanguageIsNotChosen(t *testing.T) {
	f := &fakeOnboarder{}
	m := newTestModel(f, onboarding.NeedsLanguage)

	send(m, keyMsg(tea.KeyDown))
	send(m, keyMsg(tea.KeyDown))
	send(m, keyMsg(tea.KeyEnter))
	assert.Empty(t, f.languages)
	assert.Equal(t, ViewLanguage, m.CurrentView())
	assert.Contains(t, m.View(), "coming soon")
}

func TestWizard_StepErrorStaysOnView(t *testing.T) {
	f := &fakeOnboarder{err: errors.New("disk full")}
	m := newTestModel(f, onboarding.NeedsLanguage)

	send(m, keyMsg(tea.KeyEnter))
	assert.Equal(t, ViewLanguage, m.CurrentView())
	require.Error(t, m.Err())
	assert.Contains(t, m.View(), "disk full")
}

func TestWizard_StartsAtCrop(t *testing.T) {
	f := &fakeOnboarder{cropRoute: onboarding.Home}
	m := newTestModel(f, onboarding.NeedsCrop)
	require.Equal(t, ViewCrop, m.CurrentView())

	send(m, keyMsg(tea.KeyEnter))
	assert.Equal(t, []string{onboarding.Crops[0].ID}, f.crops)
	assert.Equal(t, onboarding.Home, m.Route())
}

func TestWizard_EscAborts(t *testing.T) {
	m := newTestModel(&fakeOnboarder{}, onboarding.NeedsLanguage)
	_, cmd := m.Update(keyMsg(tea.KeyEsc))
	require.NotNil(t, cmd)
	assert.True(t, m.Aborted())
	assert.Equal(t, onboarding.NeedsLanguage, m.Route())
}

func TestWizard_CompletedStartsAtDone(t *testing.T) {
	m := newTestModel(&fakeOnboarder{}, onboarding.Home)
	assert.Equal(t, ViewDone, m.CurrentView())
	_, cmd := m.Update(keyMsg(tea.KeyEnter))
	assert.NotNil(t, cmd)
	assert.False(t, m.Aborted())
}
