package onboarding

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCrop is returned for crop ids outside the catalogue.
var ErrUnknownCrop = errors.New("unknown crop")

// Crop is one selectable crop.
type Crop struct {
	ID   string
	Name string
}

// Crops is the selectable crop catalogue, in picker order.
var Crops = []Crop{
	{ID: "coffee", Name: "COFFEE"},
	{ID: "coconut", Name: "COCONUT"},
	{ID: "rice", Name: "RICE"},
	{ID: "banana", Name: "BANANA"},
	{ID: "cardamom", Name: "CARDAMOM"},
	{ID: "black_pepper", Name: "BLACK PEPPER"},
	{ID: "ginger", Name: "GINGER"},
	{ID: "cashew", Name: "CASHEW"},
}

// LookupCrop finds a crop by id or display name, case-insensitively.
func LookupCrop(s string) (Crop, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	want = strings.ReplaceAll(want, " ", "_")
	for _, c := range Crops {
		if c.ID == want {
			return c, nil
		}
	}
	return Crop{}, fmt.Errorf("%w: %q", ErrUnknownCrop, s)
}
