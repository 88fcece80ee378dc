package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/imamik/opsprov/internal/config"
	"github.com/imamik/opsprov/internal/state"
)

// Output formats accepted by Status.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// StatusEntry is one instance in the status output.
type StatusEntry struct {
	Instance    string       `json:"instance"`
	Status      state.Status `json:"status"`
	LastUpdated time.Time    `json:"last_updated"`
	Attempts    int          `json:"attempts,omitempty"`
	Agents      []string     `json:"agents,omitempty"`
	LastError   string       `json:"last_error,omitempty"`
	RunID       string       `json:"run_id,omitempty"`
}

// Status prints the recorded outcome of every instance in the state file.
func Status(ctx context.Context, configPath string, override func(*config.RunConfig), output string) error {
	if output != OutputTable && output != OutputJSON {
		return fmt.Errorf("unknown output format %q (want table or json)", output)
	}

	cfg, err := resolveConfig(configPath, override)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	records := store.Records()
	entries := make([]StatusEntry, 0, len(records))
	for _, key := range store.Keys() {
		r := records[key]
		entries = append(entries, StatusEntry{
			Instance:    key,
			Status:      r.Status,
			LastUpdated: r.LastUpdated,
			Attempts:    r.Attempts,
			Agents:      r.Agents,
			LastError:   r.LastError,
			RunID:       r.RunID,
		})
	}

	if output == OutputJSON {
		b, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(stdout, string(b))
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintf(stdout, "No records in %s\n", store.Path())
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tSTATUS\tATTEMPTS\tAGENTS\tLAST UPDATED\tLAST ERROR")
	counts := make(map[state.Status]int)
	for _, e := range entries {
		counts[e.Status]++
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Instance,
			e.Status,
			orDash(e.Attempts),
			dashIfEmpty(strings.Join(e.Agents, ",")),
			e.LastUpdated.UTC().Format(time.RFC3339),
			dashIfEmpty(firstLine(e.LastError)),
		)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}

	fmt.Fprintf(stdout, "\n%d instances: %d success, %d failure, %d validation failure\n",
		len(entries), counts[state.StatusSuccess], counts[state.StatusFailure], counts[state.StatusValidationFailure])
	return nil
}

func orDash(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprint(n)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
