package state

import "time"

// Status is the terminal outcome recorded for an instance.
type Status string

const (
	StatusSuccess           Status = "SUCCESS"
	StatusFailure           Status = "FAILURE"
	StatusValidationFailure Status = "VALIDATION_FAILURE"
)

// Record is the persisted outcome for one instance. Files written before
// attempts, errors and run IDs were recorded hold only status and
// last_updated and load unchanged.
type Record struct {
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
	Attempts    int       `json:"attempts,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Agents      []string  `json:"agents,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
}

// Succeeded reports whether the record allows the instance to be skipped.
func (r Record) Succeeded() bool {
	return r.Status == StatusSuccess
}
