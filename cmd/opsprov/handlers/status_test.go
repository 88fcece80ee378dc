package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/opsprov/internal/config"
	"github.com/imamik/opsprov/internal/state"
)

func seedState(t *testing.T, env *testEnv) {
	t.Helper()
	store, err := state.Open(context.Background(), env.statePath())
	require.NoError(t, err)

	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put("projects/acme/zones/z/instances/web-1", state.Record{
		Status: state.StatusSuccess, LastUpdated: stamp, Attempts: 1, Agents: []string{"ops-agent@latest"}, RunID: "run-1",
	}))
	require.NoError(t, store.Put("projects/acme/zones/z/instances/web-2", state.Record{
		Status: state.StatusFailure, LastUpdated: stamp, Attempts: 4, LastError: "ops-agent/install: exit status 255\nmore", RunID: "run-1",
	}))
}

func (e *testEnv) stateOverride() func(*config.RunConfig) {
	return func(cfg *config.RunConfig) { cfg.StateFile = e.statePath() }
}

func TestStatus_Table(t *testing.T) {
	env := newTestEnv(t)
	seedState(t, env)

	require.NoError(t, Status(context.Background(), "", env.stateOverride(), OutputTable))

	out := env.stdout.String()
	assert.Contains(t, out, "INSTANCE")
	assert.Contains(t, out, "LAST ERROR")
	assert.Contains(t, out, "projects/acme/zones/z/instances/web-1")
	assert.Contains(t, out, "ops-agent@latest")
	assert.Contains(t, out, "ops-agent/install: exit status 255")
	assert.NotContains(t, out, "more", "only the first error line is shown")
	assert.Contains(t, out, "2 instances: 1 success, 1 failure, 0 validation failure")
}

func TestStatus_JSON(t *testing.T) {
	env := newTestEnv(t)
	seedState(t, env)

	require.NoError(t, Status(context.Background(), "", env.stateOverride(), OutputJSON))

	var entries []StatusEntry
	require.NoError(t, json.Unmarshal(env.stdout.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "projects/acme/zones/z/instances/web-1", entries[0].Instance)
	assert.Equal(t, state.StatusFailure, entries[1].Status)
	assert.Equal(t, 4, entries[1].Attempts)
}

func TestStatus_Empty(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, Status(context.Background(), "", env.stateOverride(), OutputTable))
	assert.Contains(t, env.stdout.String(), "No records in")
}

func TestStatus_ReadsRemoteMirror(t *testing.T) {
	env := newTestEnv(t)
	remote := &memRemote{data: []byte(`{"projects/acme/zones/z/instances/db-1":{"status":"SUCCESS","last_updated":"2026-03-01T10:00:00Z"}}`)}
	newRemote = func(context.Context, *config.RunConfig) (state.Remote, error) { return remote, nil }

	err := Status(context.Background(), "", func(cfg *config.RunConfig) {
		cfg.StateFile = env.statePath()
		cfg.RemoteState.Bucket = "ops-state"
	}, OutputTable)

	require.NoError(t, err)
	assert.Contains(t, env.stdout.String(), "projects/acme/zones/z/instances/db-1")
	assert.NoFileExists(t, env.statePath(), "status never writes the state file")
}

func TestStatus_UnknownFormat(t *testing.T) {
	newTestEnv(t)

	err := Status(context.Background(), "", nil, "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
