package provisioning

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imamik/opsprov/internal/fleet"
	"github.com/imamik/opsprov/internal/state"
	"github.com/imamik/opsprov/internal/util/retry"
)

// recordingObserver is a test Observer that records events.
type recordingObserver struct {
	mu       sync.Mutex
	events   []Event
	messages []string
	progress [][2]int
}

func (r *recordingObserver) Printf(format string, v ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, fmt.Sprintf(format, v...))
}

func (r *recordingObserver) Event(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) Progress(completed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, [2]int{completed, total})
}

func (r *recordingObserver) WithFields(map[string]string) Observer {
	return r
}

func (r *recordingObserver) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fastPolicy keeps retries in the millisecond range.
func fastPolicy() *retry.Policy {
	return &retry.Policy{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func instanceName(project, zone, name string) string {
	return fmt.Sprintf("projects/%s/zones/%s/instances/%s", project, zone, name)
}

func inst(name string) fleet.Instance {
	return fleet.Instance{Project: "acme-prod", Zone: "us-central1-a", Name: name}
}

// row builds a valid input row for instance name with the given rules JSON.
func row(n int, name, rules string) fleet.Row {
	return fleet.Row{Number: n, Instance: instanceName("acme-prod", "us-central1-a", name), Rules: rules, Fields: 2}
}

const opsAgentLatest = `[{"type":"ops-agent","version":"latest"}]`

// fleetOf returns a batch of n valid ops-agent rows named vm-0..vm-n-1.
func fleetOf(n int) fleet.Batch {
	rows := make([]fleet.Row, n)
	for i := range rows {
		rows[i] = row(i+1, fmt.Sprintf("vm-%d", i), opsAgentLatest)
	}
	return fleet.Parse(rows)
}

func openStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.Open(t.Context(), filepath.Join(t.TempDir(), "provisioning_state.json"))
	require.NoError(t, err)
	return s
}
