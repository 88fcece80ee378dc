package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/opsprov/cmd/opsprov/handlers"
)

// Validate returns the command that checks a CSV file without provisioning.
func Validate() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a CSV file for malformed rows",
		Long: `Parse and validate every row of a CSV file without contacting any instance.

Each invalid row is printed with its row number and reasons. The command exits
non-zero if any row is invalid.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Validate(cmd.Context(), inputPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "file", "f", "", "CSV file to validate")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
