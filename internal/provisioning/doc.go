// Package provisioning runs a batch of agent installations across a fleet.
//
// # Core Types
//
// Provisioner consults the State Store, turns each spec into a Task and runs
// the tasks on a bounded worker pool through a provider.Provider.
// Task is the per-instance state machine:
//
//	PENDING -> RUNNING -> SUCCESS | RETRY_SCHEDULED | FAILURE
//	RETRY_SCHEDULED -> RUNNING
//
// Summary aggregates the per-row outcomes once every task is terminal.
// Observer receives structured events; LogObserver writes them through logr.
// Metrics exposes Prometheus counters for the run.
package provisioning
