package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/opsprov/cmd/opsprov/handlers"
)

// Keygen returns the command that writes an SSH key pair for direct-ssh.
func Keygen() *cobra.Command {
	var path string
	var keyType string
	var bits int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an SSH key pair for the direct-ssh provider",
		Long: `Write a new SSH key pair to --out and --out.pub.

Install the public key on the fleet, then pass the private key to
provision with --provider direct-ssh --ssh-key. Existing files are never
overwritten.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Keygen(cmd.OutOrStdout(), path, keyType, bits)
		},
	}

	cmd.Flags().StringVarP(&path, "out", "o", "opsprov_id", "Private key path; the public key is written next to it")
	cmd.Flags().StringVarP(&keyType, "type", "t", handlers.KeyTypeRSA, "Key type: rsa or ed25519")
	cmd.Flags().IntVarP(&bits, "bits", "b", 4096, "RSA key size in bits")

	return cmd
}
