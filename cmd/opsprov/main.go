// Package main is the entry point for the opsprov CLI.
//
// opsprov installs Google Cloud observability agents (ops-agent, logging,
// metrics) on a fleet of Compute Engine instances listed in a CSV file. Each
// instance is provisioned by a bounded worker pool with retries, and the
// outcome is recorded in a state file so that later runs skip instances that
// already succeeded.
//
// Commands: provision, validate, status, keygen, version, completion.
//
// For detailed usage information, run:
//
//	opsprov --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/opsprov/cmd/opsprov/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
