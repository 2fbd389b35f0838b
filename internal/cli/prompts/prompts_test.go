package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asteroid-belt/kisan/internal/i18n"
	"github.com/asteroid-belt/kisan/internal/onboarding"
)

func TestBuildLanguageOptions_SkipsLocked(t *testing.T) {
	langs := []i18n.LanguageOption{
		{Code: "hi", Name: "HINDI"},
		{Code: "ta", Name: "TAMIL", Locked: true},
		{Code: "en", Name: "ENGLISH"},
	}

	options := BuildLanguageOptions(langs)

	assert.Len(t, options, 2)
	assert.Equal(t, "hi", options[0].Value)
	assert.Equal(t, "en", options[1].Value)
}

func TestBuildCropOptions(t *testing.T) {
	options := BuildCropOptions(onboarding.Crops)

	assert.Len(t, options, len(onboarding.Crops))
	assert.Equal(t, "coffee", options[0].Value)
	assert.Equal(t, "COFFEE", options[0].Key)
}

func TestBuildAnswerOptions(t *testing.T) {
	options := BuildAnswerOptions([]string{"Drip", "Flood", "Sprinkler"})

	assert.Len(t, options, 3)
	assert.Equal(t, "A. Drip", options[0].Key)
	assert.Equal(t, "Drip", options[0].Value)
	assert.Equal(t, "C. Sprinkler", options[2].Key)
}

func TestRunSelect_NoOptions(t *testing.T) {
	_, err := RunSelect("Pick", nil, "")
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("farmer@example.com"))
	assert.NoError(t, ValidateEmail("  farmer@example.com "))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("farmer"))
	assert.Error(t, ValidateEmail("@example.com"))
	assert.Error(t, ValidateEmail("farmer@"))
	assert.Error(t, ValidateEmail("a@b@c"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret"))
	assert.Error(t, ValidatePassword("12345"))
}

func TestRunCredentialsForm_NothingMissing(t *testing.T) {
	in := Credentials{Name: "Asha", Email: "a@b.in", Password: "secret"}

	out, err := RunCredentialsForm("Sign up", in, true)

	assert.NoError(t, err)
	assert.Equal(t, in, out)
}
