// Package s3 provides a client for S3-compatible object storage.
//
// [StateBackend] mirrors the provisioning state file to a bucket so that
// runs from different machines share one record of completed instances.
package s3
