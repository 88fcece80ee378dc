package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/imamik/opsprov/internal/provisioning"
)

// LineObserver prints one progress line per completed row. It is used when
// stdout is not a terminal.
type LineObserver struct {
	mu      sync.Mutex
	w       io.Writer
	success int
	failure int
	invalid int
	skipped int
}

// NewLineObserver creates an observer writing progress lines to w.
func NewLineObserver(w io.Writer) *LineObserver {
	return &LineObserver{w: w}
}

// Printf is dropped; the log observer records free-form messages.
func (o *LineObserver) Printf(string, ...any) {}

// Event counts outcomes.
func (o *LineObserver) Event(event provisioning.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch event.Type {
	case provisioning.EventTaskSucceeded:
		o.success++
	case provisioning.EventTaskFailed:
		o.failure++
	case provisioning.EventValidationFailed:
		o.invalid++
	case provisioning.EventTaskSkipped:
		o.skipped++
	}
}

// Progress prints the running totals.
func (o *LineObserver) Progress(completed, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = fmt.Fprintf(o.w, "Progress: %s completed; %s succeeded; %s failed; %s invalid; %s skipped;\n",
		provisioning.Rate(completed, total),
		provisioning.Rate(o.success, completed),
		provisioning.Rate(o.failure, completed),
		provisioning.Rate(o.invalid, completed),
		provisioning.Rate(o.skipped, completed),
	)
}

// WithFields implements provisioning.Observer.
func (o *LineObserver) WithFields(map[string]string) provisioning.Observer {
	return o
}
