package provisioning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/opsprov/internal/agent"
	"github.com/imamik/opsprov/internal/util/retry"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()

	m.recordOutcome(OutcomeSuccess)
	m.recordOutcome(OutcomeSuccess)
	m.recordOutcome(OutcomeFailure)
	m.recordAttempt()
	m.recordRetry()
	m.recordCommand(agent.StepInstall, nil, time.Second)
	m.recordCommand(agent.StepInstall, errors.New("timeout"), time.Second)
	m.recordCommand(agent.StepVerify, retry.Fatal(errors.New("denied")), time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.outcomes.WithLabelValues("SUCCESS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("FAILURE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.attempts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.retries))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.commands.WithLabelValues("install", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.commands.WithLabelValues("install", "transient")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.commands.WithLabelValues("verify", "fatal")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.commandDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.recordOutcome(OutcomeSuccess)
		m.recordAttempt()
		m.recordRetry()
		m.recordCommand(agent.StepRegister, nil, time.Second)
		m.recordTask(time.Second)
		m.recordRunCompleted(time.Now())
	})
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	m := NewMetrics()
	m.recordOutcome(OutcomeSkipped)
	m.recordRunCompleted(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "opsprov.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `opsprov_outcomes_total{outcome="SKIPPED"} 1`)
	assert.Contains(t, string(data), "opsprov_last_run_timestamp_seconds 1.7e+09")
}

func TestMetrics_WriteToTextfileError(t *testing.T) {
	m := NewMetrics()
	err := m.WriteToTextfile(filepath.Join(t.TempDir(), "missing", "opsprov.prom"))
	assert.Error(t, err)
}
