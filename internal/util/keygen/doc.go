// Package keygen generates SSH key pairs for the direct-ssh provider.
//
// Private keys are PEM encoded; public keys use the OpenSSH authorized_keys
// format so they can be appended to a fleet image or metadata entry.
package keygen
