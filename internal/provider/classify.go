package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/opsprov/internal/fleet"
	"github.com/imamik/opsprov/internal/platform/ssh"
	"github.com/imamik/opsprov/internal/util/retry"
)

// Class tells the retry policy whether a failure may succeed on another try.
type Class int

const (
	// Transient failures are network blips, timeouts, rate limits and remote
	// commands that failed for reasons that may clear up.
	Transient Class = iota
	// Fatal failures are rejected credentials, missing commands, denied
	// permissions and instances the cloud CLI cannot find.
	Fatal
)

func (c Class) String() string {
	if c == Fatal {
		return "fatal"
	}
	return "transient"
}

// Exit statuses the shell reserves for commands that cannot run.
const (
	exitNotExecutable = 126
	exitNotFound      = 127
)

// fatalMarkers in command output mark failures that retrying cannot fix.
var fatalMarkers = []string{
	"Permission denied",
	"command not found",
}

// gcloud reports a missing instance, project or zone on its own error line.
const (
	gcloudErrorPrefix = "(gcloud.compute.ssh)"
	gcloudNotFound    = "was not found"
)

// ExecError describes a failed Execute call.
type ExecError struct {
	Provider string
	Instance fleet.Instance
	Class    Class
	ExitCode int
	Output   string
	// Err is the transport error, nil when the command ran and exited
	// non-zero.
	Err error
}

func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s failure on %s: %v", e.Provider, e.Class, e.Instance, e.Err)
	}
	msg := fmt.Sprintf("%s: %s failure on %s: exit status %d", e.Provider, e.Class, e.Instance, e.ExitCode)
	if line := lastLine(e.Output); line != "" {
		msg += ": " + line
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// AsExecError extracts an *ExecError from err.
func AsExecError(err error) (*ExecError, bool) {
	var e *ExecError
	ok := errors.As(err, &e)
	return e, ok
}

// ClassOf returns the classification of err. Errors that are not ExecErrors
// are fatal only when marked with retry.Fatal.
func ClassOf(err error) Class {
	if retry.IsFatal(err) {
		return Fatal
	}
	if e, ok := AsExecError(err); ok {
		return e.Class
	}
	return Transient
}

// Classify turns a raw command outcome into the Execute error contract.
func Classify(provider string, inst fleet.Instance, res Result, err error) error {
	if err == nil && res.ExitCode == 0 {
		return nil
	}
	return newExecError(&ExecError{
		Provider: provider,
		Instance: inst,
		Class:    classify(res, err),
		ExitCode: res.ExitCode,
		Output:   res.Output,
		Err:      err,
	})
}

func newExecError(e *ExecError) error {
	if e.Class == Fatal {
		return retry.Fatal(e)
	}
	return e
}

func classify(res Result, err error) Class {
	switch {
	case err != nil && retry.IsFatal(err):
		return Fatal
	case errors.Is(err, ssh.ErrAuthentication):
		return Fatal
	case err != nil:
		return Transient
	case res.ExitCode == exitNotExecutable, res.ExitCode == exitNotFound:
		return Fatal
	}
	for _, marker := range fatalMarkers {
		if strings.Contains(res.Output, marker) {
			return Fatal
		}
	}
	if strings.Contains(res.Output, gcloudErrorPrefix) && strings.Contains(res.Output, gcloudNotFound) {
		return Fatal
	}
	return Transient
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\r\n\t "), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
