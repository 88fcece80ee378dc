package provisioning

import (
	"errors"
	"fmt"
	"slices"

	"github.com/imamik/opsprov/internal/agent"
	"github.com/imamik/opsprov/internal/fleet"
)

// TaskStatus is the state of a Task.
type TaskStatus string

const (
	TaskPending        TaskStatus = "PENDING"
	TaskRunning        TaskStatus = "RUNNING"
	TaskRetryScheduled TaskStatus = "RETRY_SCHEDULED"
	TaskSuccess        TaskStatus = "SUCCESS"
	TaskFailure        TaskStatus = "FAILURE"
)

// Terminal reports whether no further transition is allowed.
func (s TaskStatus) Terminal() bool {
	return s == TaskSuccess || s == TaskFailure
}

// ErrInvalidTransition is returned for a transition the state machine forbids.
var ErrInvalidTransition = errors.New("invalid task transition")

var transitions = map[TaskStatus][]TaskStatus{
	TaskPending:        {TaskRunning},
	TaskRunning:        {TaskSuccess, TaskRetryScheduled, TaskFailure},
	TaskRetryScheduled: {TaskRunning},
}

// Task is one instance's unit of work: its spec, the resolved command
// sequence and the run state. A Task is owned by a single worker and is not
// safe for concurrent use.
type Task struct {
	Spec fleet.Spec
	// Key is the state key, the instance's full name.
	Key string
	// LogName is the per-instance log file name without extension.
	LogName string

	steps    []agent.Step
	next     int
	status   TaskStatus
	attempts int
	lastErr  error
	verified map[fleet.AgentType]bool
	history  []TaskStatus
}

// NewTask creates a pending task for spec running steps in order.
func NewTask(spec fleet.Spec, steps []agent.Step) *Task {
	return &Task{
		Spec:     spec,
		Key:      spec.Instance.String(),
		LogName:  spec.Instance.Filename(),
		steps:    steps,
		status:   TaskPending,
		verified: make(map[fleet.AgentType]bool),
		history:  []TaskStatus{TaskPending},
	}
}

// Status returns the current state.
func (t *Task) Status() TaskStatus { return t.status }

// Attempts returns how many times the task entered RUNNING.
func (t *Task) Attempts() int { return t.attempts }

// LastError returns the error of the most recent failed attempt.
func (t *Task) LastError() error { return t.lastErr }

// Steps returns the full command sequence.
func (t *Task) Steps() []agent.Step { return slices.Clone(t.steps) }

// Remaining returns the steps not yet completed in this run. A retry
// resumes at the step that failed.
func (t *Task) Remaining() []agent.Step { return slices.Clone(t.steps[t.next:]) }

// History returns every state the task has been in, in order.
func (t *Task) History() []TaskStatus { return slices.Clone(t.history) }

// Verified reports whether the verify step for agent type at succeeded.
func (t *Task) Verified(at fleet.AgentType) bool { return t.verified[at] }

// Start moves the task to RUNNING and counts the attempt.
func (t *Task) Start() error {
	if err := t.transition(TaskRunning); err != nil {
		return err
	}
	t.attempts++
	return nil
}

// Complete records that the next remaining step succeeded.
func (t *Task) Complete(step agent.Step) error {
	if t.status != TaskRunning {
		return fmt.Errorf("%w: step %s completed while %s", ErrInvalidTransition, step.Name(), t.status)
	}
	if t.next >= len(t.steps) || t.steps[t.next] != step {
		return fmt.Errorf("step %s completed out of order", step.Name())
	}
	t.next++
	if step.Kind == agent.StepVerify {
		t.verified[step.Agent] = true
	}
	return nil
}

// Succeed marks the task SUCCESS. Every step must have completed.
func (t *Task) Succeed() error {
	if t.next < len(t.steps) {
		return fmt.Errorf("task %s has %d steps left", t.Key, len(t.steps)-t.next)
	}
	return t.transition(TaskSuccess)
}

// ScheduleRetry records err and moves the task to RETRY_SCHEDULED.
func (t *Task) ScheduleRetry(err error) error {
	if e := t.transition(TaskRetryScheduled); e != nil {
		return e
	}
	t.lastErr = err
	return nil
}

// Fail records err and marks the task FAILURE.
func (t *Task) Fail(err error) error {
	if e := t.transition(TaskFailure); e != nil {
		return e
	}
	t.lastErr = err
	return nil
}

func (t *Task) transition(to TaskStatus) error {
	if !slices.Contains(transitions[t.status], to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.status, to)
	}
	t.status = to
	t.history = append(t.history, to)
	return nil
}
