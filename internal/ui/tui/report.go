package tui

import (
	"fmt"
	"io"

	"github.com/imamik/opsprov/internal/provisioning"
)

// WriteReport prints the per-instance lines and the final counts. Styling
// is only applied when styled is true.
func WriteReport(w io.Writer, s *provisioning.Summary, styled bool) {
	render := func(style styleFunc, text string) string {
		if !styled {
			return text
		}
		return style(text)
	}

	for _, r := range s.Results {
		icon, style := outcomeIcon(r.Outcome)
		for _, line := range lineFor(r) {
			_, _ = fmt.Fprintf(w, "%s %s\n", render(style, icon), line)
		}
	}
	_, _ = fmt.Fprintln(w)
	for _, line := range s.Counts() {
		_, _ = fmt.Fprintln(w, render(sf(boldStyle), line))
	}
	_, _ = fmt.Fprintln(w)
}

func lineFor(r provisioning.Result) []string {
	single := provisioning.Summary{Results: []provisioning.Result{r}}
	return single.Lines()
}
