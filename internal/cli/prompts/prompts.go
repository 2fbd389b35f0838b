// Package prompts provides interactive CLI prompt components using charmbracelet/huh.
package prompts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/onboarding"
)

// ErrNoChoices is returned when a selector has nothing to offer.
var ErrNoChoices = errors.New("nothing to choose from")

// BuildLanguageOptions creates huh options for the unlocked languages.
func BuildLanguageOptions(langs []i18n.LanguageOption) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(langs))
	for _, l := range langs {
		if l.Locked {
			continue
		}
		options = append(options, huh.NewOption(l.Name, l.Code))
	}
	return options
}

// BuildCropOptions creates huh options from the crop catalogue.
func BuildCropOptions(crops []onboarding.Crop) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(crops))
	for _, c := range crops {
		options = append(options, huh.NewOption(c.Name, c.ID))
	}
	return options
}

// BuildAnswerOptions labels quiz options A, B, C... The value is the option
// text itself.
func BuildAnswerOptions(choices []string) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(choices))
	for i, c := range choices {
		label := fmt.Sprintf("%c. %s", 'A'+rune(i%26), c)
		options = append(options, huh.NewOption(label, c))
	}
	return options
}

// RunSelect shows a single-choice list and returns the chosen value.
func RunSelect(title string, options []huh.Option[string], preselected string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoChoices
	}

	// Bind the preselection before the form is created.
	selected := preselected
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(options...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

// RunConfirm asks a yes/no question.
func RunConfirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

// Credentials are an email and password pair.
type Credentials struct {
	Name     string
	Email    string
	Password string
}

// ValidateEmail rejects obviously malformed addresses.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	if at < 1 || at == len(s)-1 || strings.Count(s, "@") != 1 {
		return errors.New("enter a valid email address")
	}
	return nil
}

// ValidatePassword enforces the backend's minimum length.
func ValidatePassword(s string) error {
	if len(s) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// RunCredentialsForm asks for whatever in c is still empty. withName also
// asks for a display name, as on sign up.
func RunCredentialsForm(title string, c Credentials, withName bool) (Credentials, error) {
	var fields []huh.Field
	if withName && c.Name == "" {
		fields = append(fields, huh.NewInput().Title("Full name").Value(&c.Name))
	}
	if c.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Validate(ValidateEmail).
			Value(&c.Email))
	}
	if c.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Validate(ValidatePassword).
			Value(&c.Password))
	}
	if len(fields) == 0 {
		return c, nil
	}

	form := huh.NewForm(huh.NewGroup(fields...).Title(title))
	if err := form.Run(); err != nil {
		return Credentials{}, err
	}
	c.Email = strings.TrimSpace(c.Email)
	return c, nil
}
