// Package config defines the resolved run configuration consumed by the
// provisioning engine.
//
// A [RunConfig] starts from [Default], whose durations honour the
// OPSPROV_* environment variables (see [LoadTimeouts]). An optional YAML file
// read by [LoadFile] is applied on top, and the command line overrides both.
// [RunConfig.Validate] must pass before any task is scheduled.
package config
