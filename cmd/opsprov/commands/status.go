package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/opsprov/cmd/opsprov/handlers"
	"github.com/imamik/opsprov/internal/config"
)

// Status returns the command that prints the recorded outcome per instance.
func Status() *cobra.Command {
	var configPath string
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the recorded outcome of every instance",
		Long: `Print the contents of the state file.

The state file location and remote mirror are taken from the configuration
file and flags, as for provision. When the local file is missing and a remote
bucket is configured, the mirrored copy is shown.
`,
		Args: cobra.NoArgs,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: "+config.DefaultConfigFile+" if present)")
	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputTable, "Output format: table or json")

	defaults := config.Default()
	stateFile := cmd.Flags().String("state-file", defaults.StateFile, "State file to read")
	bucket := cmd.Flags().String("remote-bucket", "", "S3 bucket mirroring the state file")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		override := func(cfg *config.RunConfig) {
			if cmd.Flags().Changed("state-file") {
				cfg.StateFile = *stateFile
			}
			if cmd.Flags().Changed("remote-bucket") {
				cfg.RemoteState.Bucket = *bucket
			}
		}
		return handlers.Status(cmd.Context(), configPath, override, output)
	}

	return cmd
}
