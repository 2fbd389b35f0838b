// Package theme provides color theming for the TUI.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the TUI.
type Theme struct {
	// Primary colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor

	// Background colors
	Surface lipgloss.AdaptiveColor
	Overlay lipgloss.AdaptiveColor

	// Text colors
	Text          lipgloss.AdaptiveColor
	TextMuted     lipgloss.AdaptiveColor
	TextHighlight lipgloss.AdaptiveColor

	// Semantic colors
	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor

	// Podium colors
	Gold   lipgloss.AdaptiveColor
	Silver lipgloss.AdaptiveColor
	Bronze lipgloss.AdaptiveColor
}

// FieldTheme is the default paddy-green color scheme.
var FieldTheme = Theme{
	Primary:   lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#4CAF50"}, // Leaf green
	Secondary: lipgloss.AdaptiveColor{Light: "#5D4037", Dark: "#A1887F"}, // Soil brown
	Accent:    lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FBC02D"}, // Harvest gold

	Surface: lipgloss.AdaptiveColor{Light: "#F1F8E9", Dark: "#1B2A1B"},
	Overlay: lipgloss.AdaptiveColor{Light: "#DCEDC8", Dark: "#2E3D2E"},

	Text:          lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#E5E5E5"},
	TextMuted:     lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"},
	TextHighlight: lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"},

	Success: lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#66BB6A"},
	Warning: lipgloss.AdaptiveColor{Light: "#CC5500", Dark: "#FF9800"},
	Error:   lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#EF5350"},
	Info:    lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#42A5F5"},

	Gold:   lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFD700"},
	Silver: lipgloss.AdaptiveColor{Light: "#707070", Dark: "#C0C0C0"},
	Bronze: lipgloss.AdaptiveColor{Light: "#8B4513", Dark: "#CD7F32"},
}

// Current is the active theme.
var Current = FieldTheme

// TierColor returns the podium color for a leaderboard tier name.
func TierColor(tier string) lipgloss.AdaptiveColor {
	switch tier {
	case "gold":
		return Current.Gold
	case "silver":
		return Current.Silver
	case "bronze":
		return Current.Bronze
	default:
		return Current.Text
	}
}

// TrendColor returns the color for a market price trend.
func TrendColor(trend string) lipgloss.AdaptiveColor {
	switch trend {
	case "up":
		return Current.Success
	case "down":
		return Current.Error
	default:
		return Current.TextMuted
	}
}
