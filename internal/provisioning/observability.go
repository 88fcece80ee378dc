package provisioning

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/go-logr/logr"
)

// Logger is the minimal printf-style logging interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Observer defines the interface for structured observability during a run.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// Progress reports how many of the batch's rows have an outcome.
	Progress(completed, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType
	Instance  string // State key of the instance, empty for run events
	Message   string
	Attempt   int
	Err       error
	Timestamp time.Time
	Fields    map[string]string
}

// EventType represents the type of provisioning event.
type EventType string

const (
	EventRunStarted       EventType = "run.started"
	EventRunCompleted     EventType = "run.completed"
	EventTaskStarted      EventType = "task.started"
	EventTaskRetry        EventType = "task.retry"
	EventTaskSucceeded    EventType = "task.succeeded"
	EventTaskFailed       EventType = "task.failed"
	EventTaskSkipped      EventType = "task.skipped"
	EventValidationFailed EventType = "validation.failed"
	// EventStepFinished is emitted after every remote command. Log
	// observers only show it at verbosity 1.
	EventStepFinished EventType = "step.finished"
)

// LogObserver implements Observer on top of a logr.Logger.
type LogObserver struct {
	log    logr.Logger
	fields map[string]string
}

// NewLogObserver creates an observer writing to log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{
		log:    log,
		fields: make(map[string]string),
	}
}

// Printf implements Logger.
func (o *LogObserver) Printf(format string, v ...any) {
	o.log.Info(fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	kv := o.keyValues(event)
	switch event.Type {
	case EventTaskFailed, EventValidationFailed:
		o.log.Error(event.Err, event.Message, kv...)
	case EventStepFinished:
		o.log.V(1).Info(event.Message, kv...)
	default:
		if event.Err != nil {
			kv = append(kv, "error", event.Err.Error())
		}
		o.log.Info(event.Message, kv...)
	}
}

// Progress implements Observer.
func (o *LogObserver) Progress(completed, total int) {
	o.log.V(1).Info("progress", "completed", completed, "total", total, "rate", Rate(completed, total))
}

// WithFields implements Observer.
func (o *LogObserver) WithFields(fields map[string]string) Observer {
	merged := make(map[string]string, len(o.fields)+len(fields))
	maps.Copy(merged, o.fields)
	maps.Copy(merged, fields)
	return &LogObserver{log: o.log, fields: merged}
}

func (o *LogObserver) keyValues(event Event) []any {
	kv := []any{"event", string(event.Type)}
	if event.Instance != "" {
		kv = append(kv, "instance", event.Instance)
	}
	if event.Attempt > 0 {
		kv = append(kv, "attempt", event.Attempt)
	}

	merged := make(map[string]string, len(o.fields)+len(event.Fields))
	maps.Copy(merged, o.fields)
	maps.Copy(merged, event.Fields)
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		kv = append(kv, k, merged[k])
	}
	return kv
}

// multiObserver fans every call out to several observers.
type multiObserver []Observer

// Observers combines several observers into one. Nil entries are dropped.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multiObserver) Printf(format string, v ...any) {
	for _, o := range m {
		o.Printf(format, v...)
	}
}

func (m multiObserver) Event(event Event) {
	for _, o := range m {
		o.Event(event)
	}
}

func (m multiObserver) Progress(completed, total int) {
	for _, o := range m {
		o.Progress(completed, total)
	}
}

func (m multiObserver) WithFields(fields map[string]string) Observer {
	out := make(multiObserver, len(m))
	for i, o := range m {
		out[i] = o.WithFields(fields)
	}
	return out
}
