package provisioning

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/opsprov/internal/fleet"
)

func TestRate(t *testing.T) {
	assert.Equal(t, "[0/0]", Rate(0, 0))
	assert.Equal(t, "[1/3] (33.3%)", Rate(1, 3))
	assert.Equal(t, "[4/4] (100.0%)", Rate(4, 4))
}

func TestSummary_ExitCode(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    int
	}{
		{"all success", Summary{Total: 2, Success: 2}, 0},
		{"skipped only", Summary{Total: 2, Skipped: 2}, 0},
		{"empty", Summary{}, 0},
		{"failure", Summary{Total: 2, Success: 1, Failure: 1}, 1},
		{"validation failure", Summary{Total: 2, Skipped: 1, ValidationFailure: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.summary.ExitCode())
		})
	}
}

func TestSummary_Counts(t *testing.T) {
	s := Summary{Total: 4, Success: 1, Failure: 1, ValidationFailure: 1, Skipped: 1}

	assert.Equal(t, []string{
		"SUCCEEDED: [1/4] (25.0%)",
		"FAILED: [1/4] (25.0%)",
		"VALIDATION FAILED: [1/4] (25.0%)",
		"SKIPPED: [1/4] (25.0%)",
		"COMPLETED: [4/4] (100.0%)",
	}, s.Counts())
	assert.Contains(t, s.String(), "COMPLETED: [4/4]")
}

func TestSummary_Lines(t *testing.T) {
	s := Summary{Results: []Result{
		{Key: "a", Row: 1, Outcome: OutcomeSkipped},
		{Key: "b", Row: 2, Outcome: OutcomeValidationFailure, Error: "bad version"},
		{Key: "c", Row: 3, Outcome: OutcomeSuccess, LogPath: "/logs/c.log", Agents: []AgentOutcome{
			{Type: fleet.AgentLogging, Running: true},
			{Type: fleet.AgentMetrics, Running: false},
		}},
	}}

	assert.Equal(t, []string{
		"Instance: a was skipped.",
		"Instance: b (row 2) is invalid: bad version",
		"Instance: c successfully runs logging. See log file in: /logs/c.log",
		"Instance: c fails to run metrics. See log file in: /logs/c.log",
	}, s.Lines())
}

func TestCollector_ConcurrentAdds(t *testing.T) {
	c := newCollector(100)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := OutcomeSuccess
			if i%4 == 0 {
				outcome = OutcomeFailure
			}
			c.add(Result{Row: 100 - i, Outcome: outcome})
		}()
	}
	wg.Wait()

	s := c.summary("run", time.Now(), time.Second)
	assert.Equal(t, 100, s.Total)
	assert.Equal(t, 75, s.Success)
	assert.Equal(t, 25, s.Failure)
	assert.Equal(t, 100, s.Completed())
	for i, r := range s.Results {
		assert.Equal(t, i+1, r.Row)
	}
}
