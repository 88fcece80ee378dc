// Package hcloud resolves fleet instances to reachable addresses through the
// Hetzner Cloud API.
//
// The direct-ssh provider uses [Resolver] when instances are addressed by
// server name rather than DNS. Lookups that can never succeed (unknown
// server, rejected token, no public address) are marked fatal; API errors
// that may clear up are returned as is and retried by the caller.
package hcloud
