package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/opsprov/internal/provisioning"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderCounts(&b, m)

	if len(m.Order) > 0 {
		renderActive(&b, m)
	}
	if len(m.Recent) > 0 {
		renderRecent(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render("opsprov: " + m.Title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done && (m.Failure > 0 || m.Invalid > 0):
		status += failedStyle.Render("Completed with failures")
	case m.Done:
		status += readyStyle.Render("Completed")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render("Provisioning")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	fmt.Fprintf(b, "  %s %s\n", bar, provisioning.Rate(m.Completed, m.Total))
}

func renderCounts(b *strings.Builder, m Model) {
	fmt.Fprintf(b, "  %s  %s  %s  %s\n",
		readyStyle.Render(fmt.Sprintf("succeeded %d", m.Success)),
		failedStyle.Render(fmt.Sprintf("failed %d", m.Failure)),
		warningStyle.Render(fmt.Sprintf("invalid %d", m.Invalid)),
		dimStyle.Render(fmt.Sprintf("skipped %d", m.Skipped)),
	)
}

func renderActive(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render(fmt.Sprintf("  In progress (%d)", len(m.Order))))
	b.WriteString("\n")

	limit := len(m.Order)
	if m.Height > 0 {
		limit = min(limit, max(m.Height-maxRecent-10, 3))
	}
	for _, key := range m.Order[:limit] {
		t := m.Active[key]
		if t == nil {
			continue
		}
		icon, style := currentSpinner(m.SpinnerFrame), sf(activeStyle)
		detail := t.Step
		if t.Retrying {
			icon, style = warnMark, sf(warningStyle)
			detail = "waiting to retry"
		}
		if detail == "" {
			detail = "starting"
		}
		fmt.Fprintf(b, "    %s %s %s\n", style(icon), t.Instance,
			dimStyle.Render(fmt.Sprintf("attempt %d  %s", max(t.Attempt, 1), detail)))
	}
	if hidden := len(m.Order) - limit; hidden > 0 {
		fmt.Fprintf(b, "    %s\n", dimStyle.Render(fmt.Sprintf("... and %d more", hidden)))
	}
}

func renderRecent(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Recent"))
	b.WriteString("\n")

	for i := len(m.Recent) - 1; i >= 0; i-- {
		o := m.Recent[i]
		icon, style := outcomeIcon(o.Status)
		line := fmt.Sprintf("    %s %s", style(icon), o.Instance)
		if o.Attempts > 0 {
			line += dimStyle.Render(fmt.Sprintf("  %d attempt(s)", o.Attempts))
		}
		if o.Err != "" {
			line += "  " + failedStyle.Render(truncate(o.Err, 80))
		}
		b.WriteString(line + "\n")
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s  |  q: quit", elapsed)))
	b.WriteString("\n")
}

// Helper functions

func outcomeIcon(o provisioning.Outcome) (string, styleFunc) {
	switch o {
	case provisioning.OutcomeSuccess:
		return checkMark, sf(readyStyle)
	case provisioning.OutcomeSkipped:
		return skipMark, sf(dimStyle)
	case provisioning.OutcomeValidationFailure:
		return warnMark, sf(warningStyle)
	default:
		return crossMark, sf(failedStyle)
	}
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func calculateProgress(m Model) float64 {
	if m.Total == 0 {
		if m.Done {
			return 1.0
		}
		return 0
	}
	return min(float64(m.Completed)/float64(m.Total), 1.0)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
