package provider

import (
	"context"
	"time"

	"github.com/imamik/opsprov/internal/fleet"
	"github.com/imamik/opsprov/internal/platform/gcloud"
)

// LocalCLI executes commands through the locally installed gcloud CLI.
type LocalCLI struct {
	runner  *gcloud.Runner
	timeout time.Duration
}

// NewLocalCLI returns a provider that runs every command through runner,
// killing it after timeout.
func NewLocalCLI(runner *gcloud.Runner, timeout time.Duration) *LocalCLI {
	return &LocalCLI{runner: runner, timeout: timeout}
}

func (p *LocalCLI) Name() string { return "local-cli" }

func (p *LocalCLI) Execute(ctx context.Context, inst fleet.Instance, command string) (Result, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.runner.Run(ctx, inst, command)
	res := Result{ExitCode: out.ExitCode, Output: out.Output}
	return res, Classify(p.Name(), inst, res, err)
}
