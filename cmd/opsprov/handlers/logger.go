package handlers

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// lockedWriter serializes writes from concurrent workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) line(prefix, args string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prefix != "" {
		_, _ = fmt.Fprintln(l.w, prefix, args)
		return
	}
	_, _ = fmt.Fprintln(l.w, args)
}

// newLogger returns a logr.Logger writing key/value lines to w. Verbose
// enables V(1) messages such as per-step command lines.
func newLogger(w io.Writer, verbose bool) logr.Logger {
	lw := &lockedWriter{w: w}
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	return funcr.New(lw.line, funcr.Options{
		LogTimestamp:    true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		Verbosity:       verbosity,
	})
}
