// Package state persists the last known provisioning outcome per instance.
//
// The [Store] is a single JSON object keyed by instance identity. All access
// goes through one mutex; every Put rewrites the file through a temporary
// file and a rename, so a process killed mid-run leaves either the previous
// or the next complete snapshot on disk and the next run resumes from it.
//
// A [Lock] next to the state file keeps two processes from owning the same
// store. An optional [Remote] mirrors the file to object storage.
package state
