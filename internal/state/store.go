package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/imamik/opsprov/internal/util/retry"
)

// Remote mirrors the state file to shared storage.
type Remote interface {
	// Download returns the stored bytes, or nil when nothing is stored.
	Download(ctx context.Context) ([]byte, error)
	Upload(ctx context.Context, data []byte) error
}

// Store is the mutex-serialized table of records.
type Store struct {
	path   string
	remote Remote
	now    func() time.Time

	mu      sync.Mutex
	records map[string]Record
}

// Option configures a Store.
type Option func(*Store)

// WithRemote mirrors the store to r. Open seeds a missing local file from r
// and Push uploads the current snapshot.
func WithRemote(r Remote) Option {
	return func(s *Store) {
		s.remote = r
	}
}

// WithClock sets the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open loads the store at path. A missing file yields an empty store; a
// corrupt one is an error so that completed work is never silently dropped.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		now:     time.Now,
		records: make(map[string]Record),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	switch {
	case errors.Is(err, os.ErrNotExist):
		if s.remote == nil {
			return s, nil
		}
		data, err = s.remote.Download(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to download remote state: %w", err)
		}
		if data == nil {
			return s, nil
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := decode(data, s.records); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	return s, nil
}

// Load reads the records at path without taking ownership of the file.
func Load(path string) (map[string]Record, error) {
	records := make(map[string]Record)
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := decode(data, records); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	return records, nil
}

func decode(data []byte, into map[string]Record) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &into)
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the record for key.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	return r, ok
}

// Put stores r under key, stamping LastUpdated when unset, and persists the
// whole table before returning.
func (s *Store) Put(key string, r Record) error {
	if r.LastUpdated.IsZero() {
		r.LastUpdated = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = r
	return s.writeLocked()
}

// Records returns a copy of every record.
func (s *Store) Records() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.records)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.records))
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Push uploads the current snapshot to the remote, retrying transient
// failures. It is a no-op without a remote.
func (s *Store) Push(ctx context.Context, opts ...retry.Option) error {
	if s.remote == nil {
		return nil
	}

	s.mu.Lock()
	data, err := s.marshalLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	opts = append([]retry.Option{
		retry.WithMaxRetries(3),
		retry.WithInitialDelay(500 * time.Millisecond),
		retry.WithMaxDelay(5 * time.Second),
	}, opts...)
	return retry.WithExponentialBackoff(ctx, func() error {
		return s.remote.Upload(ctx, data)
	}, opts...)
}

func (s *Store) marshalLocked() ([]byte, error) {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(data, '\n'), nil
}

func (s *Store) writeLocked() error {
	data, err := s.marshalLocked()
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { // #nosec G302 -- state holds no secrets
		return fmt.Errorf("failed to set state permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
