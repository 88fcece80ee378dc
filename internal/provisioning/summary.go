package provisioning

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/imamik/opsprov/internal/fleet"
)

// Outcome is the per-row result category of a run.
type Outcome string

const (
	OutcomeSuccess           Outcome = "SUCCESS"
	OutcomeFailure           Outcome = "FAILURE"
	OutcomeValidationFailure Outcome = "VALIDATION_FAILURE"
	OutcomeSkipped           Outcome = "SKIPPED"
)

// AgentOutcome tells whether one requested agent was verified running.
type AgentOutcome struct {
	Type    fleet.AgentType
	Running bool
}

// Result is the outcome of one input row.
type Result struct {
	Key      string
	Row      int
	Outcome  Outcome
	Attempts int
	Error    string
	LogPath  string
	Agents   []AgentOutcome
}

// Summary aggregates the outcome of a run. It is only built once every
// scheduled task has reached a terminal status.
type Summary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	Total             int
	Success           int
	Failure           int
	ValidationFailure int
	Skipped           int

	// Results are ordered by input row.
	Results []Result
}

// Completed returns how many rows have an outcome.
func (s *Summary) Completed() int {
	return s.Success + s.Failure + s.ValidationFailure + s.Skipped
}

// Failed reports whether any row failed or was invalid.
func (s *Summary) Failed() bool {
	return s.Failure > 0 || s.ValidationFailure > 0
}

// ExitCode is 0 when no row failed or was invalid, 1 otherwise. Skipped
// rows do not count.
func (s *Summary) ExitCode() int {
	if s.Failed() {
		return 1
	}
	return 0
}

// Counts returns the final report lines.
func (s *Summary) Counts() []string {
	return []string{
		"SUCCEEDED: " + Rate(s.Success, s.Total),
		"FAILED: " + Rate(s.Failure, s.Total),
		"VALIDATION FAILED: " + Rate(s.ValidationFailure, s.Total),
		"SKIPPED: " + Rate(s.Skipped, s.Total),
		"COMPLETED: " + Rate(s.Completed(), s.Total),
	}
}

// Lines returns one or more report lines per row.
func (s *Summary) Lines() []string {
	var lines []string
	for _, r := range s.Results {
		switch r.Outcome {
		case OutcomeSkipped:
			lines = append(lines, fmt.Sprintf("Instance: %s was skipped.", r.Key))
		case OutcomeValidationFailure:
			lines = append(lines, fmt.Sprintf("Instance: %s (row %d) is invalid: %s", r.Key, r.Row, r.Error))
		default:
			for _, a := range r.Agents {
				verb := "fails to run"
				if a.Running {
					verb = "successfully runs"
				}
				lines = append(lines, fmt.Sprintf("Instance: %s %s %s. See log file in: %s", r.Key, verb, a.Type, r.LogPath))
			}
		}
	}
	return lines
}

func (s *Summary) String() string {
	return strings.Join(s.Counts(), "\n")
}

// Rate formats n out of total as "[n/total] (pct%)".
func Rate(n, total int) string {
	if total == 0 {
		return fmt.Sprintf("[%d/0]", n)
	}
	return fmt.Sprintf("[%d/%d] (%.1f%%)", n, total, float64(n)*100/float64(total))
}

// collector gathers results from concurrent workers.
type collector struct {
	total int

	mu      sync.Mutex
	results []Result
}

func newCollector(total int) *collector {
	return &collector{total: total, results: make([]Result, 0, total)}
}

// add records r and returns how many results have been recorded.
func (c *collector) add(r Result) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
	return len(c.results)
}

func (c *collector) summary(runID string, started time.Time, d time.Duration) *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		RunID:     runID,
		StartedAt: started,
		Duration:  d,
		Total:     c.total,
		Results:   slices.Clone(c.results),
	}
	slices.SortStableFunc(s.Results, func(a, b Result) int { return a.Row - b.Row })

	for _, r := range s.Results {
		switch r.Outcome {
		case OutcomeSuccess:
			s.Success++
		case OutcomeFailure:
			s.Failure++
		case OutcomeValidationFailure:
			s.ValidationFailure++
		case OutcomeSkipped:
			s.Skipped++
		}
	}
	return s
}
