package provisioning

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imamik/opsprov/internal/agent"
	"github.com/imamik/opsprov/internal/provider"
	"github.com/imamik/opsprov/internal/util/redact"
)

// outputTailLines is how much command output is kept per log entry.
const outputTailLines = 20

const logTimeFormat = "2006-01-02T15:04:05.000000Z"

// LogDirName returns the per-run log directory name for t.
func LogDirName(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s_%06d", t.Format("20060102-150405"), t.Nanosecond()/int(time.Microsecond))
}

// taskLog appends entries to one instance's log file. It belongs to the
// worker running the task. A taskLog without a file discards everything.
type taskLog struct {
	path     string
	f        *os.File
	redactor *redact.Redactor
	now      func() time.Time
}

func openTaskLog(dir, name string, redactor *redact.Redactor, now func() time.Time) (*taskLog, error) {
	l := &taskLog{redactor: redactor, now: now}
	if dir == "" {
		return l, nil
	}

	l.path = filepath.Join(dir, name+".log")
	// #nosec G304 -- path is built from the run's log directory
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open task log: %w", err)
	}
	l.f = f
	return l, nil
}

// Path returns the log file location, empty when logging is disabled.
func (l *taskLog) Path() string {
	return l.path
}

func (l *taskLog) header(t *Task) {
	types := make([]string, 0, len(t.Spec.Rules))
	for _, r := range t.Spec.Rules {
		types = append(types, r.String())
	}
	l.printf("%s installing %s on %s (row %d)\n", l.stamp(), strings.Join(types, ","), t.Key, t.Spec.Row)
}

func (l *taskLog) step(attempt int, step agent.Step, res provider.Result, err error) {
	l.printf("%s attempt=%d step=%s exit=%d\n", l.stamp(), attempt, step.Name(), res.ExitCode)
	l.printf("$ %s\n", l.redactor.String(step.Command))
	if tail := tailLines(res.Output, outputTailLines); tail != "" {
		l.printf("%s\n", l.redactor.String(tail))
	}
	if err != nil {
		l.printf("error: %s\n", l.redactor.String(err.Error()))
	}
}

func (l *taskLog) retry(attempt int, delay time.Duration) {
	l.printf("%s attempt=%d failed, retrying in %s\n", l.stamp(), attempt, delay.Round(time.Millisecond))
}

func (l *taskLog) finish(t *Task) {
	msg := fmt.Sprintf("%s status=%s attempts=%d", l.stamp(), t.Status(), t.Attempts())
	if err := t.LastError(); err != nil && t.Status() == TaskFailure {
		msg += " error=" + l.redactor.String(err.Error())
	}
	l.printf("%s\n", msg)
}

func (l *taskLog) abandon(t *Task, cause error) {
	l.printf("%s attempt=%d abandoned: %v\n", l.stamp(), t.Attempts(), cause)
}

func (l *taskLog) printf(format string, args ...any) {
	if l.f == nil {
		return
	}
	_, _ = fmt.Fprintf(l.f, format, args...)
}

func (l *taskLog) stamp() string {
	return l.now().UTC().Format(logTimeFormat)
}

func (l *taskLog) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

// tailLines returns the last n lines of s without the trailing newline.
func tailLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
