package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/opsprov/internal/fleet"
)

// ErrInvalidRows is returned by Validate when any row is malformed.
var ErrInvalidRows = errors.New("input contains invalid rows")

// Validate parses the input file and reports every malformed row without
// contacting any instance.
func Validate(_ context.Context, inputPath string) error {
	rows, err := fleet.ReadFile(inputPath)
	if err != nil {
		return err
	}
	batch := fleet.Parse(rows)

	for _, rowErr := range batch.Invalid {
		fmt.Fprintln(stdout, rowErr.Error())
	}

	seen := make(map[string]int, len(batch.Specs))
	for _, spec := range batch.Specs {
		key := spec.Instance.String()
		if first, ok := seen[key]; ok {
			fmt.Fprintf(stdout, "row %d: warning: instance %q already listed on row %d\n", spec.Row, key, first)
			continue
		}
		seen[key] = spec.Row
	}

	fmt.Fprintf(stdout, "%d rows: %d valid, %d invalid\n", batch.Total(), len(batch.Specs), len(batch.Invalid))

	if len(batch.Invalid) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidRows, len(batch.Invalid), batch.Total())
	}
	return nil
}
