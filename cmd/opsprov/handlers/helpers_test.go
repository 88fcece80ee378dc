package handlers

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imamik/opsprov/internal/config"
	"github.com/imamik/opsprov/internal/provisioning"
	"github.com/imamik/opsprov/internal/state"
	"github.com/imamik/opsprov/internal/ui/tui"
)

const (
	opsAgentRow = `"projects/acme/zones/us-central1-a/instances/%s","[{""type"":""ops-agent"",""version"":""latest""}]"`
	invalidRow  = `"projects/acme/zones/us-central1-a/instances/bad","[{""type"":""ops-agent""},{""type"":""logging""}]"`
)

var fixedNow = time.Date(2026, 3, 1, 12, 30, 45, 123456000, time.UTC)

// saveAndRestoreFactories restores every injectable variable after the test.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadConfigFile := loadConfigFile
	origLoadDefaultConfig := loadDefaultConfig
	origNewProvider := newProvider
	origNewRemote := newRemote
	origCheckPrereqs := checkPrereqs
	origIsTerminal := isTerminal
	origRunTUI := runTUI
	origStdout := stdout
	origStderr := stderr
	origNow := now

	t.Cleanup(func() {
		loadConfigFile = origLoadConfigFile
		loadDefaultConfig = origLoadDefaultConfig
		newProvider = origNewProvider
		newRemote = origNewRemote
		checkPrereqs = origCheckPrereqs
		isTerminal = origIsTerminal
		runTUI = origRunTUI
		stdout = origStdout
		stderr = origStderr
		now = origNow
	})
}

// testEnv captures output and points every path into a temp directory.
type testEnv struct {
	dir    string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	saveAndRestoreFactories(t)

	env := &testEnv{dir: t.TempDir(), stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	stdout = env.stdout
	stderr = env.stderr
	now = func() time.Time { return fixedNow }
	isTerminal = func() bool { return false }
	loadDefaultConfig = func(string) (*config.RunConfig, error) { return config.Default(), nil }
	return env
}

func (e *testEnv) statePath() string { return filepath.Join(e.dir, "state", "provisioning_state.json") }
func (e *testEnv) logRoot() string   { return filepath.Join(e.dir, "logs") }
func (e *testEnv) runDir() string {
	return filepath.Join(e.logRoot(), provisioning.LogDirName(fixedNow))
}

func (e *testEnv) writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(e.dir, "vms.csv")
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l + "\n")
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

// dryRun returns an override running input on the mock provider.
func (e *testEnv) dryRun(input string, extra ...func(*config.RunConfig)) func(*config.RunConfig) {
	return func(cfg *config.RunConfig) {
		cfg.InputFile = input
		cfg.DryRun = true
		cfg.StateFile = e.statePath()
		cfg.LogRoot = e.logRoot()
		cfg.RetryBaseDelay = time.Millisecond
		cfg.RetryMaxDelay = 5 * time.Millisecond
		for _, fn := range extra {
			fn(cfg)
		}
	}
}

func (e *testEnv) records(t *testing.T) map[string]state.Record {
	t.Helper()
	records, err := state.Load(e.statePath())
	require.NoError(t, err)
	return records
}

type memRemote struct {
	mu      sync.Mutex
	data    []byte
	uploads int
}

func (m *memRemote) Download(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memRemote) Upload(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	m.data = append([]byte(nil), data...)
	return nil
}

// inlineTUI runs the batch without a terminal program.
func inlineTUI(called *bool) func(string, int, func(), tui.RunFunc) (*provisioning.Summary, error) {
	return func(_ string, _ int, _ func(), fn tui.RunFunc) (*provisioning.Summary, error) {
		*called = true
		return fn(nil)
	}
}
