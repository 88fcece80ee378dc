package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imamik/opsprov/internal/fleet"
	"github.com/imamik/opsprov/internal/util/retry"
)

// Failure configures simulated failures for the Mock provider.
type Failure struct {
	Class Class
	// Times is how many calls fail before the instance starts succeeding.
	// Ignored when Always is set.
	Times  int
	Always bool
	// ExitCode defaults to 255 for transient and 127 for fatal failures.
	ExitCode int
	Output   string
}

func (f *Failure) failsCall(n int) bool {
	return f.Always || n <= f.Times
}

// Mock performs no I/O. It succeeds unless configured to fail, and records
// every command it receives.
type Mock struct {
	latency  time.Duration
	fallback *Failure
	failures map[string]*Failure

	mu    sync.Mutex
	calls map[string][]string
	total int
}

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithFailures makes every instance fail according to f.
func WithFailures(f Failure) MockOption {
	return func(m *Mock) {
		m.fallback = &f
	}
}

// WithInstanceFailure makes inst fail according to f, taking precedence
// over WithFailures.
func WithInstanceFailure(inst fleet.Instance, f Failure) MockOption {
	return func(m *Mock) {
		m.failures[inst.String()] = &f
	}
}

// WithLatency delays every call by d, honouring context cancellation.
func WithLatency(d time.Duration) MockOption {
	return func(m *Mock) {
		m.latency = d
	}
}

// NewMock returns a Mock provider.
func NewMock(opts ...MockOption) *Mock {
	m := &Mock{
		failures: make(map[string]*Failure),
		calls:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Execute(ctx context.Context, inst fleet.Instance, command string) (Result, error) {
	if m.latency > 0 {
		if err := retry.Sleep(ctx, m.latency); err != nil {
			res := Result{ExitCode: -1}
			return res, Classify(m.Name(), inst, res, err)
		}
	}

	key := inst.String()
	m.mu.Lock()
	m.calls[key] = append(m.calls[key], command)
	n := len(m.calls[key])
	m.total++
	f := m.failures[key]
	if f == nil {
		f = m.fallback
	}
	m.mu.Unlock()

	if f == nil || !f.failsCall(n) {
		return Result{ExitCode: 0, Output: "mock: ok\n"}, nil
	}

	res := Result{ExitCode: f.ExitCode, Output: f.Output}
	if res.ExitCode == 0 {
		res.ExitCode = 255
		if f.Class == Fatal {
			res.ExitCode = exitNotFound
		}
	}
	if res.Output == "" {
		res.Output = fmt.Sprintf("simulated %s failure (call %d)\n", f.Class, n)
	}
	return res, newExecError(&ExecError{
		Provider: m.Name(),
		Instance: inst,
		Class:    f.Class,
		ExitCode: res.ExitCode,
		Output:   res.Output,
	})
}

// Calls returns how many commands inst received.
func (m *Mock) Calls(inst fleet.Instance) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls[inst.String()])
}

// Commands returns the commands inst received, in order.
func (m *Mock) Commands(inst fleet.Instance) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls[inst.String()]...)
}

// TotalCalls returns the number of commands received across all instances.
func (m *Mock) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
