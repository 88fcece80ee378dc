package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/opsprov/internal/provisioning"
)

// sender is the part of *tea.Program the observer needs.
type sender interface {
	Send(msg tea.Msg)
}

// programObserver forwards provisioning events to a running program.
type programObserver struct {
	p sender
}

func newProgramObserver(p sender) *programObserver {
	return &programObserver{p: p}
}

// Printf is dropped; the dashboard only shows structured events.
func (o *programObserver) Printf(string, ...any) {}

func (o *programObserver) Event(event provisioning.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	o.p.Send(EventMsg{Event: event})
}

func (o *programObserver) Progress(completed, total int) {
	o.p.Send(ProgressMsg{Completed: completed, Total: total})
}

func (o *programObserver) WithFields(map[string]string) provisioning.Observer {
	return o
}
