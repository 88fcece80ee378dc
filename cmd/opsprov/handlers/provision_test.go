package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/opsprov/internal/config"
	"github.com/imamik/opsprov/internal/provider"
	"github.com/imamik/opsprov/internal/state"
	"github.com/imamik/opsprov/internal/util/prerequisites"
)

func TestProvision_RequiresInputFile(t *testing.T) {
	env := newTestEnv(t)

	err := Provision(context.Background(), "", env.dryRun(""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file is required")
}

func TestProvision_InvalidConfiguration(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"))

	err := Provision(context.Background(), "", env.dryRun(input, func(cfg *config.RunConfig) {
		cfg.MaxWorkers = 0
	}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.NoFileExists(t, env.statePath())
}

func TestProvision_MissingInputFile(t *testing.T) {
	env := newTestEnv(t)

	err := Provision(context.Background(), "", env.dryRun(filepath.Join(env.dir, "missing.csv")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open input file")
}

func TestProvision_DryRunSuccess(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"), fmt.Sprintf(opsAgentRow, "web-2"))

	err := Provision(context.Background(), "", env.dryRun(input))
	require.NoError(t, err)

	records := env.records(t)
	require.Len(t, records, 2)
	rec := records["projects/acme/zones/us-central1-a/instances/web-1"]
	assert.Equal(t, state.StatusSuccess, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, []string{"ops-agent@latest"}, rec.Agents)
	assert.NotEmpty(t, rec.RunID)

	out := env.stdout.String()
	assert.Contains(t, out, "Progress: [2/2] (100.0%) completed;")
	assert.Contains(t, out, "Instance: projects/acme/zones/us-central1-a/instances/web-1 successfully runs ops-agent.")
	assert.Contains(t, out, "COMPLETED: [2/2] (100.0%)")

	assert.FileExists(t, filepath.Join(env.runDir(), wrapperLogName))
	assert.FileExists(t, filepath.Join(env.runDir(), "acme_us-central1-a_web-1.log"))
	assert.NoFileExists(t, state.LockPath(env.statePath()), "lock must be released")

	wrapper, err := os.ReadFile(filepath.Join(env.runDir(), wrapperLogName))
	require.NoError(t, err)
	assert.Contains(t, string(wrapper), `"msg"="Starting run"`)
	assert.Contains(t, env.stderr.String(), `"provider"="mock"`)
}

func TestProvision_InvalidRowFailsRun(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"), invalidRow)

	err := Provision(context.Background(), "", env.dryRun(input))

	require.ErrorIs(t, err, ErrProvisioningFailed)
	assert.Contains(t, err.Error(), "0 failed, 1 invalid of 2 instances")

	records := env.records(t)
	assert.Equal(t, state.StatusValidationFailure, records["projects/acme/zones/us-central1-a/instances/bad"].Status)
	assert.Equal(t, state.StatusSuccess, records["projects/acme/zones/us-central1-a/instances/web-1"].Status)
	assert.Contains(t, env.stdout.String(), "VALIDATION FAILED: [1/2] (50.0%)")
}

func TestProvision_SecondRunSkipsSucceeded(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"))

	require.NoError(t, Provision(context.Background(), "", env.dryRun(input)))
	env.stdout.Reset()
	require.NoError(t, Provision(context.Background(), "", env.dryRun(input)))

	assert.Contains(t, env.stdout.String(), "was skipped.")
	assert.Contains(t, env.stdout.String(), "SKIPPED: [1/1] (100.0%)")
}

func TestProvision_WritesMetricsFile(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"))
	metricsPath := filepath.Join(env.dir, "opsprov.prom")

	err := Provision(context.Background(), "", env.dryRun(input, func(cfg *config.RunConfig) {
		cfg.MetricsFile = metricsPath
	}))
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `opsprov_outcomes_total{outcome="SUCCESS"} 1`)
}

func TestProvision_PushesRemoteState(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"))
	remote := &memRemote{}
	newRemote = func(_ context.Context, cfg *config.RunConfig) (state.Remote, error) {
		assert.Equal(t, "ops-state", cfg.RemoteState.Bucket)
		return remote, nil
	}

	err := Provision(context.Background(), "", env.dryRun(input, func(cfg *config.RunConfig) {
		cfg.RemoteState.Bucket = "ops-state"
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, remote.uploads)
	assert.Contains(t, string(remote.data), "projects/acme/zones/us-central1-a/instances/web-1")
}

func TestProvision_LockHeld(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"))

	lock, err := state.AcquireLock(env.statePath())
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	err = Provision(context.Background(), "", env.dryRun(input))

	require.ErrorIs(t, err, state.ErrLocked)
	assert.NoFileExists(t, env.statePath())
}

func TestProvision_UsesTUIOnTerminal(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"))
	isTerminal = func() bool { return true }
	var called bool
	runTUI = inlineTUI(&called)

	require.NoError(t, Provision(context.Background(), "", env.dryRun(input)))

	assert.True(t, called)
	assert.NotContains(t, env.stdout.String(), "Progress:")
	assert.Empty(t, env.stderr.String(), "run log must not reach stderr while the dashboard runs")
}

func TestProvision_ProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"))
	newProvider = func(*config.RunConfig) (provider.Provider, error) {
		return provider.NewMock(provider.WithFailures(provider.Failure{Class: provider.Fatal, Times: 1, Output: "Permission denied"})), nil
	}

	err := Provision(context.Background(), "", env.dryRun(input))

	require.ErrorIs(t, err, ErrProvisioningFailed)
	rec := env.records(t)["projects/acme/zones/us-central1-a/instances/web-1"]
	assert.Equal(t, state.StatusFailure, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	assert.Contains(t, env.stdout.String(), "fails to run ops-agent")
}

func TestProvision_ProviderConfigError(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"))
	newProvider = func(*config.RunConfig) (provider.Provider, error) {
		return nil, errors.New("failed to read ssh key: no such file")
	}

	err := Provision(context.Background(), "", env.dryRun(input))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read ssh key")
	assert.NoDirExists(t, env.logRoot())
}

func TestProvision_ExplicitConfigFile(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, fmt.Sprintf(opsAgentRow, "web-1"))
	cfgPath := filepath.Join(env.dir, "opsprov.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("max_workers: 2\nprovider: mock\n"), 0o600))

	var seen *config.RunConfig
	newProvider = func(cfg *config.RunConfig) (provider.Provider, error) {
		seen = cfg
		return provider.NewMock(), nil
	}

	err := Provision(context.Background(), cfgPath, env.dryRun(input, func(cfg *config.RunConfig) {
		cfg.DryRun = false
	}))
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, 2, seen.MaxWorkers)
	assert.Equal(t, config.ProviderMock, seen.Provider)
}

func TestProvision_ExplicitConfigFileMissing(t *testing.T) {
	env := newTestEnv(t)

	err := Provision(context.Background(), filepath.Join(env.dir, "nope.yaml"), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestCheckPrerequisites(t *testing.T) {
	env := newTestEnv(t)

	t.Run("skipped for other providers", func(t *testing.T) {
		checkPrereqs = func(context.Context, []prerequisites.Tool, bool) *prerequisites.CheckResults {
			t.Fatal("should not be called")
			return nil
		}
		cfg := config.Default()
		cfg.Provider = config.ProviderDirectSSH
		assert.NoError(t, checkPrerequisites(context.Background(), cfg))
	})

	t.Run("missing gcloud fails", func(t *testing.T) {
		var checked []string
		checkPrereqs = func(_ context.Context, tools []prerequisites.Tool, _ bool) *prerequisites.CheckResults {
			for _, tool := range tools {
				checked = append(checked, tool.Name)
			}
			return &prerequisites.CheckResults{Missing: []prerequisites.Tool{tools[0], tools[1]}}
		}
		cfg := config.Default()
		cfg.GcloudPath = "/opt/google-cloud-sdk/bin/gcloud"

		err := checkPrerequisites(context.Background(), cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "/opt/google-cloud-sdk/bin/gcloud")
		assert.Equal(t, []string{"/opt/google-cloud-sdk/bin/gcloud", "ssh"}, checked)
		assert.True(t, strings.HasPrefix(env.stderr.String(), "Warning: optional tool ssh not found"))
	})
}
