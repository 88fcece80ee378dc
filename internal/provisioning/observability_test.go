package provisioning

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(verbosity int) (logr.Logger, *[]string) {
	var lines []string
	log := funcr.New(func(prefix, args string) {
		lines = append(lines, strings.TrimSpace(prefix+" "+args))
	}, funcr.Options{Verbosity: verbosity})
	return log, &lines
}

func TestLogObserver_Printf(t *testing.T) {
	log, lines := captureLogger(0)
	NewLogObserver(log).Printf("reading %s", "vms.csv")

	require.Len(t, *lines, 1)
	assert.Contains(t, (*lines)[0], `"msg"="reading vms.csv"`)
}

func TestLogObserver_Event(t *testing.T) {
	log, lines := captureLogger(0)
	obs := NewLogObserver(log).WithFields(map[string]string{"run_id": "r1"})

	obs.Event(Event{
		Type:     EventTaskRetry,
		Instance: "projects/p/zones/z/instances/a",
		Attempt:  2,
		Message:  "attempt failed, retrying",
		Err:      errors.New("exit status 255"),
		Fields:   map[string]string{"delay": "2s"},
	})

	require.Len(t, *lines, 1)
	line := (*lines)[0]
	assert.Contains(t, line, `"event"="task.retry"`)
	assert.Contains(t, line, `"instance"="projects/p/zones/z/instances/a"`)
	assert.Contains(t, line, `"attempt"=2`)
	assert.Contains(t, line, `"delay"="2s"`)
	assert.Contains(t, line, `"run_id"="r1"`)
	assert.Contains(t, line, `"error"="exit status 255"`)
}

func TestLogObserver_FailuresLogAsErrors(t *testing.T) {
	log, lines := captureLogger(0)
	NewLogObserver(log).Event(Event{
		Type:    EventTaskFailed,
		Message: "provisioning failed",
		Err:     errors.New("permission denied"),
	})

	require.Len(t, *lines, 1)
	assert.Contains(t, (*lines)[0], `"error"="permission denied"`)
}

func TestLogObserver_StepEventsNeedVerbosity(t *testing.T) {
	quiet, quietLines := captureLogger(0)
	NewLogObserver(quiet).Event(Event{Type: EventStepFinished, Message: "step finished"})
	NewLogObserver(quiet).Progress(1, 2)
	assert.Empty(t, *quietLines)

	verbose, verboseLines := captureLogger(1)
	NewLogObserver(verbose).Event(Event{Type: EventStepFinished, Message: "step finished"})
	NewLogObserver(verbose).Progress(1, 2)
	require.Len(t, *verboseLines, 2)
	assert.Contains(t, (*verboseLines)[1], `"rate"="[1/2] (50.0%)"`)
}

func TestLogObserver_WithFieldsDoesNotLeak(t *testing.T) {
	log, lines := captureLogger(0)
	base := NewLogObserver(log)
	_ = base.WithFields(map[string]string{"instance": "a"})

	base.Event(Event{Type: EventRunStarted, Message: "starting run"})
	require.Len(t, *lines, 1)
	assert.NotContains(t, (*lines)[0], `"instance"`)
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	obs := Observers(a, nil, b)

	obs.Event(Event{Type: EventRunStarted})
	obs.Progress(1, 1)
	obs.WithFields(map[string]string{"k": "v"}).Printf("hello %d", 1)

	for _, r := range []*recordingObserver{a, b} {
		assert.Len(t, r.events, 1)
		assert.Equal(t, [][2]int{{1, 1}}, r.progress)
		assert.Equal(t, []string{"hello 1"}, r.messages)
	}
}

func TestObservers_Single(t *testing.T) {
	a := &recordingObserver{}
	assert.Same(t, a, Observers(nil, a))
}
