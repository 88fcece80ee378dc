package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/opsprov/internal/provisioning"
)

// RunFunc runs a batch, reporting to obs.
type RunFunc func(obs provisioning.Observer) (*provisioning.Summary, error)

// RunProvisionTUI runs fn while showing the dashboard and returns fn's
// results once both have finished. Quitting the dashboard before fn returns
// calls cancel and waits for fn to wind down.
func RunProvisionTUI(title string, total int, cancel func(), fn RunFunc, opts ...tea.ProgramOption) (*provisioning.Summary, error) {
	p := tea.NewProgram(NewModel(title, total), opts...)

	type result struct {
		summary *provisioning.Summary
		err     error
	}
	done := make(chan result, 1)

	go func() {
		summary, err := fn(newProgramObserver(p))
		done <- result{summary: summary, err: err}
		if err != nil {
			p.Send(ErrMsg{Err: err})
			return
		}
		p.Send(DoneMsg{Summary: summary})
	}()

	_, runErr := p.Run()

	var r result
	select {
	case r = <-done:
	default:
		cancel()
		r = <-done
	}
	if runErr != nil {
		return r.summary, fmt.Errorf("TUI error: %w", runErr)
	}
	return r.summary, r.err
}
