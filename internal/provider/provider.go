package provider

import (
	"context"
	"time"

	"github.com/imamik/opsprov/internal/fleet"
)

// Result is the outcome of one remote command.
type Result struct {
	ExitCode int
	Output   string
}

// Provider executes commands on fleet instances.
//
// Execute returns a nil error only when the command exited with status 0.
// Any other outcome is reported as an *ExecError, wrapped with retry.Fatal
// when retrying cannot help. Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Execute(ctx context.Context, inst fleet.Instance, command string) (Result, error)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
