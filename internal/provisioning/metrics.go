package provisioning

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/opsprov/internal/agent"
	"github.com/imamik/opsprov/internal/provider"
)

const metricsNamespace = "opsprov"

// Metrics holds the run's Prometheus collectors on a private registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	outcomes        *prometheus.CounterVec
	attempts        prometheus.Counter
	retries         prometheus.Counter
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	taskDuration    prometheus.Histogram
	lastRun         prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "outcomes_total",
				Help:      "Rows by run outcome",
			},
			[]string{"outcome"},
		),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "task",
			Name:      "attempts_total",
			Help:      "Task attempts started",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "task",
			Name:      "retries_total",
			Help:      "Task attempts that were scheduled for retry",
		}),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "command",
				Name:      "total",
				Help:      "Remote commands by step and result",
			},
			[]string{"step", "result"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "command",
				Name:      "duration_seconds",
				Help:      "Duration of remote commands in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4m
			},
			[]string{"step"},
		),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "task",
			Name:      "duration_seconds",
			Help:      "Duration of tasks from first attempt to terminal status",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5m
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run completed",
		}),
	}

	m.registry.MustRegister(
		m.outcomes,
		m.attempts,
		m.retries,
		m.commands,
		m.commandDuration,
		m.taskDuration,
		m.lastRun,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func (m *Metrics) recordOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) recordAttempt() {
	if m == nil {
		return
	}
	m.attempts.Inc()
}

func (m *Metrics) recordRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) recordCommand(kind agent.StepKind, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = provider.ClassOf(err).String()
	}
	m.commands.WithLabelValues(string(kind), result).Inc()
	m.commandDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func (m *Metrics) recordTask(d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.Observe(d.Seconds())
}

func (m *Metrics) recordRunCompleted(at time.Time) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(at.Unix()))
}
