package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// LanguageOption is one entry of the language picker.
type LanguageOption struct {
	Code string
	Name string
	// Locked languages are shown but cannot be chosen yet.
	Locked bool
}

// pickerOrder is the order languages are offered in.
var pickerOrder = []LanguageOption{
	{Code: "hi", Name: "हिन्दी/HINDI"},
	{Code: "en", Name: "ENGLISH"},
	{Code: "pa", Name: "ਪੰਜਾਬੀ/PUNJABI"},
	{Code: "ml", Name: "മലയാളം/MALAYALAM"},
	{Code: "ta", Name: "தமிழ்/TAMIL"},
	{Code: "kn", Name: "ಕನ್ನಡ/KANNADA"},
	{Code: "te", Name: "తెలుగు/TELUGU"},
	{Code: "kok", Name: "कोंकणी/KONKANI"},
	{Code: "mr", Name: "मराठी/MARATHI"},
}

// Normalize reduces a language tag to its base code: "PA", "pa-IN" and
// "pa_Guru_IN" all become "pa".
func Normalize(code string) (string, error) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return "", fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("language %q: %w", code, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// Options returns the picker list; languages without a catalog are locked.
func (c *Catalog) Options() []LanguageOption {
	out := make([]LanguageOption, 0, len(pickerOrder))
	seen := make(map[string]bool, len(pickerOrder))
	for _, opt := range pickerOrder {
		opt.Locked = !c.Has(opt.Code)
		out = append(out, opt)
		seen[opt.Code] = true
	}
	for _, code := range c.Languages() {
		if !seen[code] {
			out = append(out, LanguageOption{Code: code, Name: strings.ToUpper(code)})
		}
	}
	return out
}
