package provider

import (
	"errors"
	"fmt"
	"os"

	"github.com/imamik/opsprov/internal/config"
	"github.com/imamik/opsprov/internal/platform/gcloud"
	"github.com/imamik/opsprov/internal/platform/hcloud"
	"github.com/imamik/opsprov/internal/platform/ssh"
)

const (
	// HCloudTokenEnv holds the API token used by the hcloud host source.
	HCloudTokenEnv = "HCLOUD_TOKEN"
	// PassphraseEnv holds the passphrase of an encrypted --ssh-key.
	PassphraseEnv = "OPSPROV_SSH_KEY_PASSPHRASE"
)

// New builds the provider selected by cfg. Errors are configuration errors:
// an unreadable key, an invalid host template or a missing API token.
func New(cfg *config.RunConfig) (Provider, error) {
	switch name := cfg.EffectiveProvider(); name {
	case config.ProviderMock:
		return NewMock(), nil

	case config.ProviderLocalCLI:
		return NewLocalCLI(&gcloud.Runner{
			Path:      cfg.GcloudPath,
			IAPTunnel: cfg.IAPTunnel,
		}, cfg.CommandTimeout), nil

	case config.ProviderDirectSSH:
		return newDirectSSH(cfg)

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func newDirectSSH(cfg *config.RunConfig) (*DirectSSH, error) {
	// #nosec G304 -- key path is supplied by the operator
	key, err := os.ReadFile(cfg.SSHKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key: %w", err)
	}

	client, err := ssh.NewClient(&ssh.Config{
		Port:       cfg.SSHPort,
		User:       cfg.SSHUser,
		PrivateKey: key,
		Passphrase: []byte(os.Getenv(PassphraseEnv)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ssh client: %w", err)
	}

	hosts, err := hostResolver(cfg)
	if err != nil {
		return nil, err
	}

	return NewDirectSSH(client, hosts, cfg.CommandTimeout), nil
}

func hostResolver(cfg *config.RunConfig) (HostResolver, error) {
	switch cfg.SSHHostSource {
	case "", config.HostSourceName:
		return NameResolver{}, nil
	case config.HostSourceTemplate:
		return NewTemplateResolver(cfg.SSHHostTemplate)
	case config.HostSourceHCloud:
		token := os.Getenv(HCloudTokenEnv)
		if token == "" {
			return nil, errors.New("ssh host source \"hcloud\" requires " + HCloudTokenEnv)
		}
		return hcloud.NewResolver(token), nil
	default:
		return nil, fmt.Errorf("unknown ssh host source %q", cfg.SSHHostSource)
	}
}
