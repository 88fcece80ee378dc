package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/opsprov/internal/config"
	"github.com/imamik/opsprov/internal/platform/s3"
	"github.com/imamik/opsprov/internal/state"
)

// loadConfig resolves and validates the run configuration.
func loadConfig(configPath string, override func(*config.RunConfig)) (*config.RunConfig, error) {
	cfg, err := resolveConfig(configPath, override)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveConfig applies the config file and then the flags that were set on
// top of the built-in defaults. An explicit path must exist; the default
// file is optional.
func resolveConfig(configPath string, override func(*config.RunConfig)) (*config.RunConfig, error) {
	var (
		cfg *config.RunConfig
		err error
	)
	if configPath == "" {
		cfg, err = loadDefaultConfig(config.DefaultConfigFile)
	} else {
		cfg, err = loadConfigFile(configPath)
	}
	if err != nil {
		return nil, err
	}

	if override != nil {
		override(cfg)
	}
	return cfg, nil
}

// openStore opens the state file, mirrored to S3 when a bucket is configured.
func openStore(ctx context.Context, cfg *config.RunConfig) (*state.Store, error) {
	var opts []state.Option
	if cfg.RemoteState.Enabled() {
		remote, err := newRemote(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, state.WithRemote(remote))
	}
	return state.Open(ctx, cfg.StateFile, opts...)
}

func newS3Remote(ctx context.Context, cfg *config.RunConfig) (state.Remote, error) {
	rs := cfg.RemoteState
	client, err := s3.NewClient(ctx, rs.Endpoint, rs.Region, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to create state bucket client: %w", err)
	}
	return s3.NewStateBackend(client, rs.Bucket, cfg.RemoteKey()), nil
}
