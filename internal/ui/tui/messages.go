// Package tui renders provisioning progress: a Bubble Tea dashboard for
// terminals and plain progress lines otherwise.
package tui

import "github.com/imamik/opsprov/internal/provisioning"

// EventMsg carries a provisioning event.
type EventMsg struct {
	Event provisioning.Event
}

// ProgressMsg reports how many rows have an outcome.
type ProgressMsg struct {
	Completed int
	Total     int
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the run is complete.
type DoneMsg struct {
	Summary *provisioning.Summary
}
