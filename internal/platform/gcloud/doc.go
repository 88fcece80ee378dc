// Package gcloud runs commands on Compute Engine instances through the
// locally installed gcloud CLI.
//
// Commands are passed to "gcloud compute ssh" as a discrete argument; no
// shell ever parses the argument vector on the local side.
package gcloud
