// Package retry decides whether a failed operation is attempted again and how
// long to wait before doing so.
//
// [Policy] is the per-attempt decision used by the provisioning scheduler:
// exponential backoff from a base delay, capped, with symmetric jitter so that
// many tasks failing at the same moment do not retry in lockstep. Errors
// marked with [Fatal] are never retried.
//
// [WithExponentialBackoff] wraps a whole retry loop around a closure and is
// used for auxiliary calls such as pushing the state file to remote storage.
package retry
