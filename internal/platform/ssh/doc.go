// Package ssh runs commands on remote hosts over SSH.
//
// A [Client] parses the private key once and opens a fresh connection per
// [Client.Run] call, so one client can serve many hosts from concurrent
// goroutines. Transport problems (dial, handshake, dropped session) are
// reported as errors; a command that ran and exited non-zero is reported
// through [Result.ExitCode] so callers can classify it themselves.
//
// Host key verification is disabled by default because fleet instances are
// typically reached by name without a managed known_hosts file. Set
// Config.HostKeyCallback to enforce it.
package ssh
