package config

import (
	"errors"
	"fmt"
	"text/template"
)

// ValidProviders lists the accepted provider names.
var ValidProviders = map[string]bool{
	ProviderLocalCLI:  true,
	ProviderDirectSSH: true,
	ProviderMock:      true,
}

// ValidHostSources lists the accepted direct-ssh host sources.
var ValidHostSources = map[string]bool{
	HostSourceName:     true,
	HostSourceTemplate: true,
	HostSourceHCloud:   true,
}

// Validate checks the configuration and returns every problem found.
func (c *RunConfig) Validate() error {
	var errs []error

	if c.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("max workers must be at least 1, got %d", c.MaxWorkers))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries cannot be negative, got %d", c.MaxRetries))
	}
	if !ValidProviders[c.Provider] {
		errs = append(errs, fmt.Errorf("unknown provider %q (want local-cli, direct-ssh or mock)", c.Provider))
	}
	if c.StateFile == "" {
		errs = append(errs, errors.New("state file is required"))
	}
	if c.LogRoot == "" {
		errs = append(errs, errors.New("log root is required"))
	}
	if c.CommandTimeout <= 0 {
		errs = append(errs, fmt.Errorf("command timeout must be positive, got %s", c.CommandTimeout))
	}
	if c.RetryBaseDelay < 0 {
		errs = append(errs, fmt.Errorf("retry base delay cannot be negative, got %s", c.RetryBaseDelay))
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		errs = append(errs, fmt.Errorf("retry max delay %s is below base delay %s", c.RetryMaxDelay, c.RetryBaseDelay))
	}

	if c.EffectiveProvider() == ProviderDirectSSH {
		errs = append(errs, c.validateSSH()...)
	}

	for t := range c.Agents {
		if !t.Valid() {
			errs = append(errs, fmt.Errorf("agents: unknown agent type %q", t))
		}
	}

	return errors.Join(errs...)
}

func (c *RunConfig) validateSSH() []error {
	var errs []error
	if c.SSHUser == "" {
		errs = append(errs, errors.New("direct-ssh requires --ssh-user"))
	}
	if c.SSHKey == "" {
		errs = append(errs, errors.New("direct-ssh requires --ssh-key"))
	}
	if c.SSHPort < 1 || c.SSHPort > 65535 {
		errs = append(errs, fmt.Errorf("ssh port out of range: %d", c.SSHPort))
	}

	switch c.SSHHostSource {
	case HostSourceTemplate:
		if c.SSHHostTemplate == "" {
			errs = append(errs, errors.New("ssh host source \"template\" requires --ssh-host-template"))
		} else if _, err := template.New("host").Option("missingkey=error").Parse(c.SSHHostTemplate); err != nil {
			errs = append(errs, fmt.Errorf("invalid ssh host template: %w", err))
		}
	default:
		if !ValidHostSources[c.SSHHostSource] {
			errs = append(errs, fmt.Errorf("unknown ssh host source %q (want name, template or hcloud)", c.SSHHostSource))
		}
	}
	return errs
}
