package s3

import (
	"context"
	"errors"
)

// StateBackend stores the state file as a single object.
type StateBackend struct {
	client *Client
	bucket string
	key    string
}

// NewStateBackend returns a backend storing state at s3://bucket/key.
func NewStateBackend(client *Client, bucket, key string) *StateBackend {
	return &StateBackend{client: client, bucket: bucket, key: key}
}

// Download returns the stored state, or nil with no error when nothing has
// been uploaded yet.
func (b *StateBackend) Download(ctx context.Context) ([]byte, error) {
	data, err := b.client.GetObject(ctx, b.bucket, b.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// Upload replaces the stored state.
func (b *StateBackend) Upload(ctx context.Context, data []byte) error {
	return b.client.PutObject(ctx, b.bucket, b.key, data)
}

// String returns the object URL.
func (b *StateBackend) String() string {
	return "s3://" + b.bucket + "/" + b.key
}
