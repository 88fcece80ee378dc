// Package agent maps agent rules to the remote command steps that install
// them.
//
// Each rule expands to three ordered steps: register the package repository,
// install or upgrade the package at the requested version, and verify that
// the agent process is running. The engine treats the resulting command text
// as opaque; only the step order matters to the scheduler.
package agent

import (
	"fmt"
	"strings"

	"github.com/imamik/opsprov/internal/fleet"
)

// DefaultBaseURL is where the repository setup scripts are published.
const DefaultBaseURL = "https://dl.google.com/cloudagents"

// Detail describes how one agent type is installed.
type Detail struct {
	// Package is the installed package and the process name the verify step
	// looks for.
	Package string `yaml:"package"`
	// RepoScript is the setup script downloaded from the base URL.
	RepoScript string `yaml:"repo_script"`
	// StartCommand starts the service after installation. ":" is a no-op.
	StartCommand string `yaml:"start_command"`
	// InstallFlags are appended to the install invocation.
	InstallFlags string `yaml:"install_flags"`
}

// DefaultDetails returns the built-in agent catalog.
func DefaultDetails() map[fleet.AgentType]Detail {
	return map[fleet.AgentType]Detail{
		fleet.AgentLogging: {
			Package:      "google-fluentd",
			RepoScript:   "add-logging-agent-repo.sh",
			StartCommand: "sudo service google-fluentd start",
		},
		fleet.AgentMetrics: {
			Package:      "stackdriver-agent",
			RepoScript:   "add-monitoring-agent-repo.sh",
			StartCommand: "sudo service stackdriver-agent start",
		},
		fleet.AgentOpsAgent: {
			Package:    "google-cloud-ops-agent",
			RepoScript: "add-google-cloud-ops-agent-repo.sh",
			// The Ops Agent starts its services on install.
			StartCommand: ":",
			InstallFlags: "--uninstall-standalone-logging-agent --uninstall-standalone-monitoring-agent",
		},
	}
}

// StepKind names one stage of a rule's installation.
type StepKind string

const (
	StepRegister StepKind = "register"
	StepInstall  StepKind = "install"
	StepVerify   StepKind = "verify"
)

// Step is one remote command.
type Step struct {
	Agent   fleet.AgentType
	Kind    StepKind
	Command string
}

// Name returns "<agent>/<kind>", used in logs.
func (s Step) Name() string {
	return fmt.Sprintf("%s/%s", s.Agent, s.Kind)
}

// Catalog resolves agent rules into command steps.
type Catalog struct {
	baseURL string
	details map[fleet.AgentType]Detail
}

// NewCatalog returns a catalog with the built-in details, with any entries in
// overrides replacing individual non-empty fields. An empty baseURL selects
// DefaultBaseURL.
func NewCatalog(baseURL string, overrides map[fleet.AgentType]Detail) *Catalog {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	details := DefaultDetails()
	for t, o := range overrides {
		d := details[t]
		if o.Package != "" {
			d.Package = o.Package
		}
		if o.RepoScript != "" {
			d.RepoScript = o.RepoScript
		}
		if o.StartCommand != "" {
			d.StartCommand = o.StartCommand
		}
		if o.InstallFlags != "" {
			d.InstallFlags = o.InstallFlags
		}
		details[t] = d
	}
	return &Catalog{baseURL: strings.TrimSuffix(baseURL, "/"), details: details}
}

// Detail returns the install details for an agent type.
func (c *Catalog) Detail(t fleet.AgentType) (Detail, bool) {
	d, ok := c.details[t]
	return d, ok
}

// Steps expands a rule into its register, install and verify commands.
func (c *Catalog) Steps(rule fleet.Rule) ([]Step, error) {
	d, ok := c.details[rule.Type]
	if !ok {
		return nil, fmt.Errorf("no catalog entry for agent type %q", rule.Type)
	}

	register := fmt.Sprintf("curl -sSfO %s/%s && sudo bash %s",
		c.baseURL, d.RepoScript, d.RepoScript)

	install := joinNonEmpty(" ",
		"sudo bash", d.RepoScript, "--also-install", "--version="+rule.Version, d.InstallFlags)
	install = fmt.Sprintf("%s && %s", install, d.StartCommand)

	verify := fmt.Sprintf("for i in 1 2 3; do if (ps aux | grep 'opt[/].*%s.*bin/'); "+
		"then echo '%s'; exit 0; fi; sleep 1s; done; exit 1", d.Package, successMarker(d.Package))

	return []Step{
		{Agent: rule.Type, Kind: StepRegister, Command: register},
		{Agent: rule.Type, Kind: StepInstall, Command: install},
		{Agent: rule.Type, Kind: StepVerify, Command: verify},
	}, nil
}

// Plan expands every rule of a spec, preserving rule order.
func (c *Catalog) Plan(spec fleet.Spec) ([]Step, error) {
	steps := make([]Step, 0, 3*len(spec.Rules))
	for _, rule := range spec.Rules {
		s, err := c.Steps(rule)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s...)
	}
	return steps, nil
}

// SuccessMarker is the line the verify step prints for a running agent.
func (c *Catalog) SuccessMarker(t fleet.AgentType) string {
	return successMarker(c.details[t].Package)
}

func successMarker(pkg string) string {
	return pkg + " runs successfully."
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
