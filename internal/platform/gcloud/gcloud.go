package gcloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/imamik/opsprov/internal/fleet"
)

const (
	// DefaultPath is the binary looked up on PATH when no path is configured.
	DefaultPath = "gcloud"

	// DefaultConnectTimeout is passed to ssh as ConnectTimeout, in seconds.
	DefaultConnectTimeout = 20

	// ExitSSHFailure is the status gcloud returns when the ssh transport
	// itself failed, as opposed to the remote command.
	ExitSSHFailure = 255

	waitDelay = 5 * time.Second
)

// Result is the outcome of a gcloud invocation that ran to completion.
type Result struct {
	ExitCode int
	Output   string
}

// Runner invokes "gcloud compute ssh".
type Runner struct {
	// Path to the gcloud binary. Defaults to DefaultPath.
	Path string
	// IAPTunnel adds --tunnel-through-iap for instances without a public IP.
	IAPTunnel bool
	// ConnectTimeout in seconds. Defaults to DefaultConnectTimeout.
	ConnectTimeout int
}

// SSHArgs builds the argument vector for running command on inst.
func (r *Runner) SSHArgs(inst fleet.Instance, command string) []string {
	timeout := r.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	args := []string{
		"compute", "ssh", inst.Name,
		"--project", inst.Project,
		"--zone", inst.Zone,
		"--quiet",
		"--strict-host-key-checking=no",
		"--ssh-flag", "-o ConnectTimeout=" + strconv.Itoa(timeout),
	}
	if r.IAPTunnel {
		args = append(args, "--tunnel-through-iap")
	}
	return append(args, "--command", command)
}

// Run executes command on inst and captures stdout and stderr together.
// A non-zero exit status is reported in Result with a nil error; the error is
// set only when gcloud could not be started or ctx ended first.
func (r *Runner) Run(ctx context.Context, inst fleet.Instance, command string) (Result, error) {
	path := r.Path
	if path == "" {
		path = DefaultPath
	}
	var out bytes.Buffer
	// #nosec G204 -- arguments are passed as a vector, never through a shell
	cmd := exec.CommandContext(ctx, path, r.SSHArgs(inst, command)...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	// Children of gcloud can hold the output pipe open after it is killed.
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil {
		return Result{ExitCode: 0, Output: out.String()}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{ExitCode: -1, Output: out.String()}, fmt.Errorf("gcloud ssh to %s interrupted: %w", inst, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Output: out.String()}, nil
	}

	return Result{ExitCode: -1, Output: out.String()}, fmt.Errorf("failed to run %s: %w", path, err)
}
