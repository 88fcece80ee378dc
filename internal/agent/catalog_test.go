package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/opsprov/internal/fleet"
)

func TestCatalog_Steps(t *testing.T) {
	t.Parallel()
	c := NewCatalog("", nil)

	steps, err := c.Steps(fleet.Rule{Type: fleet.AgentOpsAgent, Version: "2.*.*"})
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, StepRegister, steps[0].Kind)
	assert.Equal(t, "curl -sSfO https://dl.google.com/cloudagents/add-google-cloud-ops-agent-repo.sh && "+
		"sudo bash add-google-cloud-ops-agent-repo.sh", steps[0].Command)

	assert.Equal(t, StepInstall, steps[1].Kind)
	assert.Equal(t, "sudo bash add-google-cloud-ops-agent-repo.sh --also-install --version=2.*.* "+
		"--uninstall-standalone-logging-agent --uninstall-standalone-monitoring-agent && :", steps[1].Command)

	assert.Equal(t, StepVerify, steps[2].Kind)
	assert.Contains(t, steps[2].Command, "opt[/].*google-cloud-ops-agent.*bin/")
	assert.Contains(t, steps[2].Command, "google-cloud-ops-agent runs successfully.")
	assert.Equal(t, "ops-agent/verify", steps[2].Name())
}

func TestCatalog_PlanKeepsRuleOrder(t *testing.T) {
	t.Parallel()
	c := NewCatalog("", nil)

	steps, err := c.Plan(fleet.Spec{Rules: []fleet.Rule{
		{Type: fleet.AgentMetrics, Version: fleet.VersionLatest},
		{Type: fleet.AgentLogging, Version: "1.2.3"},
	}})
	require.NoError(t, err)
	require.Len(t, steps, 6)

	var names []string
	for _, s := range steps {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"metrics/register", "metrics/install", "metrics/verify",
		"logging/register", "logging/install", "logging/verify",
	}, names)
	assert.Equal(t, "sudo bash add-logging-agent-repo.sh --also-install --version=1.2.3 && "+
		"sudo service google-fluentd start", steps[4].Command)
}

func TestCatalog_Overrides(t *testing.T) {
	t.Parallel()
	c := NewCatalog("https://mirror.internal/agents/", map[fleet.AgentType]Detail{
		fleet.AgentLogging: {RepoScript: "logging-repo.sh"},
	})

	steps, err := c.Steps(fleet.Rule{Type: fleet.AgentLogging, Version: fleet.VersionLatest})
	require.NoError(t, err)
	assert.Equal(t, "curl -sSfO https://mirror.internal/agents/logging-repo.sh && sudo bash logging-repo.sh", steps[0].Command)

	d, ok := c.Detail(fleet.AgentLogging)
	require.True(t, ok)
	assert.Equal(t, "google-fluentd", d.Package, "fields not overridden keep their defaults")
	assert.Equal(t, "google-fluentd runs successfully.", c.SuccessMarker(fleet.AgentLogging))
}

func TestCatalog_UnknownType(t *testing.T) {
	t.Parallel()
	c := NewCatalog("", nil)

	_, err := c.Steps(fleet.Rule{Type: "tracing", Version: fleet.VersionLatest})
	assert.Error(t, err)
}
