package fleet

import (
	"fmt"
	"strconv"
	"strings"
)

// RowError is implemented by the errors returned for a single malformed row.
type RowError interface {
	error
	RowNumber() int
	// Key is the state key the failure is recorded under: the instance
	// identity when it parsed, otherwise the raw instance text.
	Key() string
}

// ParseError reports a row whose shape could not be parsed: a malformed
// instance name, undecodable rule JSON, an empty rule list or a rule without
// a type.
type ParseError struct {
	Row     int
	Input   string
	Reasons []string

	instance *Instance
}

func (e *ParseError) Error() string {
	return formatRowError("parse error", e.Row, e.Input, e.Reasons)
}

// RowNumber returns the 1-based input row.
func (e *ParseError) RowNumber() int { return e.Row }

// Key returns the state key for this row.
func (e *ParseError) Key() string { return rowKey(e.Row, e.Input, e.instance) }

// ValidationError reports a row that parsed but carries semantically invalid
// agent rules: unknown type, bad version, duplicate type or an ops-agent
// exclusivity violation.
type ValidationError struct {
	Row      int
	Instance Instance
	Reasons  []string
}

func (e *ValidationError) Error() string {
	return formatRowError("validation error", e.Row, e.Instance.String(), e.Reasons)
}

// RowNumber returns the 1-based input row.
func (e *ValidationError) RowNumber() int { return e.Row }

// Key returns the state key for this row.
func (e *ValidationError) Key() string { return e.Instance.String() }

func formatRowError(kind string, row int, input string, reasons []string) string {
	return fmt.Sprintf("row %d: %s: instance %q: %s", row, kind, input, strings.Join(reasons, " | "))
}

func rowKey(row int, input string, inst *Instance) string {
	if inst != nil {
		return inst.String()
	}
	if input != "" {
		return input
	}
	return "row:" + strconv.Itoa(row)
}
