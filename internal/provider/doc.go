// Package provider runs agent installation commands on fleet instances.
//
// A [Provider] executes one command on one instance and reports the exit
// status. Every failure is normalized into an [ExecError] classified as
// [Transient] or [Fatal]; fatal errors are additionally wrapped with
// retry.Fatal so the retry policy never schedules them again.
//
// Three variants exist: [LocalCLI] shells out to "gcloud compute ssh",
// [DirectSSH] opens an SSH session itself, and [Mock] performs no I/O.
package provider
