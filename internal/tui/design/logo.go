package design

// Color constants for the logo
const (
	// LogoColorPrimary is the leaf green of the wordmark
	LogoColorPrimary = "#4CAF50"
	// LogoColorAccent is the harvest gold accent color
	LogoColorAccent = "#FBC02D"
)

// KisanLogo is the main wordmark.
const KisanLogo = `
██╗  ██╗██╗███████╗ █████╗ ███╗   ██╗
██║ ██╔╝██║██╔════╝██╔══██╗████╗  ██║
█████╔╝ ██║███████╗███████║██╔██╗ ██║
██╔═██╗ ██║╚════██║██╔══██║██║╚██╗██║
██║  ██╗██║███████║██║  ██║██║ ╚████║
╚═╝  ╚═╝╚═╝╚══════╝╚═╝  ╚═╝╚═╝  ╚═══╝`

// KisanLogoMinimal is a single-line version for very tight spaces.
const KisanLogoMinimal = `KISAN`

// Logo returns the wordmark that fits in width columns.
func Logo(width int) string {
	if width > 0 && width < 40 {
		return KisanLogoMinimal
	}
	return KisanLogo
}
