package config

import (
	"path/filepath"
	"time"

	"github.com/imamik/opsprov/internal/agent"
	"github.com/imamik/opsprov/internal/fleet"
)

// Provider names accepted by --provider.
const (
	ProviderLocalCLI  = "local-cli"
	ProviderDirectSSH = "direct-ssh"
	ProviderMock      = "mock"
)

// Host sources for the direct-ssh provider.
const (
	// HostSourceName connects to the instance name as a hostname.
	HostSourceName = "name"
	// HostSourceTemplate renders SSHHostTemplate with the instance identity.
	HostSourceTemplate = "template"
	// HostSourceHCloud looks the instance name up in the Hetzner Cloud API.
	HostSourceHCloud = "hcloud"
)

const (
	// DefaultConfigFile is read when present and --config is not given.
	DefaultConfigFile = "opsprov.yaml"

	DefaultLogRoot       = "./google_cloud_ops_agent_provisioning"
	DefaultStateFileName = "provisioning_state.json"
	DefaultMaxWorkers    = 10
	DefaultMaxRetries    = 3
	DefaultSSHPort       = 22
	DefaultGcloudPath    = "gcloud"
	DefaultRemoteKey     = "opsprov/provisioning_state.json"
)

// RemoteState configures an S3-compatible mirror of the state file.
type RemoteState struct {
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
}

// Enabled reports whether a bucket is configured.
func (r RemoteState) Enabled() bool {
	return r.Bucket != ""
}

// RunConfig is the resolved configuration for one run.
type RunConfig struct {
	MaxWorkers int    `yaml:"max_workers"`
	MaxRetries int    `yaml:"max_retries"`
	Force      bool   `yaml:"force"`
	Provider   string `yaml:"provider"`
	DryRun     bool   `yaml:"dry_run"`

	SSHUser         string `yaml:"ssh_user"`
	SSHKey          string `yaml:"ssh_key"`
	SSHPort         int    `yaml:"ssh_port"`
	SSHHostSource   string `yaml:"ssh_host_source"`
	SSHHostTemplate string `yaml:"ssh_host_template"`

	GcloudPath string `yaml:"gcloud_path"`
	IAPTunnel  bool   `yaml:"iap_tunnel"`

	InputFile   string `yaml:"input_file"`
	StateFile   string `yaml:"state_file"`
	LogRoot     string `yaml:"log_root"`
	MetricsFile string `yaml:"metrics_file"`

	CommandTimeout time.Duration `yaml:"command_timeout"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`

	RemoteState RemoteState `yaml:"remote_state"`

	// AgentBaseURL replaces the download location of repository scripts.
	AgentBaseURL string `yaml:"agent_base_url"`
	// Agents overrides individual catalog fields per agent type.
	Agents map[fleet.AgentType]agent.Detail `yaml:"agents"`

	Verbose bool `yaml:"verbose"`
}

// Default returns the built-in configuration with environment timeouts applied.
func Default() *RunConfig {
	t := LoadTimeouts()
	return &RunConfig{
		MaxWorkers:     DefaultMaxWorkers,
		MaxRetries:     t.RetryMax,
		Provider:       ProviderLocalCLI,
		SSHPort:        DefaultSSHPort,
		SSHHostSource:  HostSourceName,
		GcloudPath:     DefaultGcloudPath,
		StateFile:      filepath.Join(DefaultLogRoot, DefaultStateFileName),
		LogRoot:        DefaultLogRoot,
		CommandTimeout: t.Command,
		RetryBaseDelay: t.RetryBaseDelay,
		RetryMaxDelay:  t.RetryMaxDelay,
	}
}

// EffectiveProvider returns the provider to run with; --dry-run forces mock.
func (c *RunConfig) EffectiveProvider() string {
	if c.DryRun {
		return ProviderMock
	}
	return c.Provider
}

// Catalog builds the agent catalog with configured overrides.
func (c *RunConfig) Catalog() *agent.Catalog {
	return agent.NewCatalog(c.AgentBaseURL, c.Agents)
}

// RemoteKey returns the object key for the remote state mirror.
func (c *RunConfig) RemoteKey() string {
	if c.RemoteState.Key != "" {
		return c.RemoteState.Key
	}
	return DefaultRemoteKey
}
