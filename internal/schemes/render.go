package schemes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders s back to a single markdown document.
func Markdown(s Scheme) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", s.Title, s.Description)
	for i, sec := range []Section{s.Benefits, s.Eligibility, s.Steps} {
		if len(sec.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", sec.Title)
		for j, item := range sec.Items {
			if i == 2 {
				fmt.Fprintf(&b, "%d. %s\n", j+1, item)
			} else {
				fmt.Fprintf(&b, "- %s\n", item)
			}
		}
	}
	return b.String()
}

// Render formats s for the terminal.
func Render(s Scheme, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return Markdown(s), fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(Markdown(s))
	if err != nil {
		return Markdown(s), fmt.Errorf("render scheme: %w", err)
	}
	return out, nil
}
