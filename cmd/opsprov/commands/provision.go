package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/opsprov/cmd/opsprov/handlers"
	"github.com/imamik/opsprov/internal/config"
)

// Provision returns the command that installs agents across a fleet.
//
// Flags:
//
//	--file, -f         CSV input (required unless set in the config file)
//	--config, -c       YAML configuration file (default: opsprov.yaml if present)
//	--provider         local-cli, direct-ssh or mock
//	--dry-run          use the mock provider
//
// Environment:
//
//	OPSPROV_COMMAND_TIMEOUT, OPSPROV_RETRY_BASE_DELAY, OPSPROV_RETRY_MAX_DELAY,
//	OPSPROV_MAX_RETRIES, OPSPROV_SSH_KEY_PASSPHRASE, HCLOUD_TOKEN
func Provision() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Install observability agents on every instance in a CSV file",
		Long: `Install Google Cloud observability agents on a fleet of instances.

Each CSV row names an instance as projects/<project>/zones/<zone>/instances/<name>
and a JSON list of agent rules, for example:

  projects/acme/zones/us-central1-a/instances/web-1,"[{""type"":""ops-agent"",""version"":""latest""}]"

For every rule the agent repository is registered, the agent is installed and
its process is verified. Failed instances are retried with exponential backoff.
The outcome of every instance is written to the state file, and instances that
already succeeded are skipped unless --force is given.

Logs for the run are written to <log-root>/<timestamp>/: wrapper_script.log for
the run and one <project>_<zone>_<name>.log per instance.

The command exits non-zero if any instance failed or was invalid.
`,
		Example: `  opsprov provision -f vms.csv
  opsprov provision -f vms.csv --max-workers 20 --max-retries 5
  opsprov provision -f vms.csv --provider direct-ssh --ssh-user ops --ssh-key ~/.ssh/opsprov
  opsprov provision -f vms.csv --dry-run`,
		Args: cobra.NoArgs,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: "+config.DefaultConfigFile+" if present)")
	flags := bindRunFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return handlers.Provision(cmd.Context(), configPath, flags.overrides(cmd.Flags()))
	}

	return cmd
}
