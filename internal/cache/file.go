package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// FileClient persists the whole store as one JSON object on disk, mapping
// each key to its raw JSON value. Every write reads the full file, mutates
// one key and writes the file back. Values must be valid JSON.
//
// TTLs are not recorded; callers that need expiry keep a timestamp inside
// the value.
type FileClient struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewFileClient opens a file-backed store at path, creating its directory.
func NewFileClient(path string) (*FileClient, error) {
	if path == "" {
		return nil, errors.New("file cache: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file cache: create dir: %w", err)
	}
	return &FileClient{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the backing file path.
func (c *FileClient) Path() string {
	return c.path
}

// Get retrieves a value.
func (c *FileClient) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("file cache: lock: %w", err)
	}
	defer func() { _ = c.lock.Unlock() }()

	store, err := c.read()
	if err != nil {
		return nil, err
	}
	v, ok := store[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return []byte(v), nil
}

// Set stores value under key. ttl is ignored.
func (c *FileClient) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if !json.Valid(value) {
		return fmt.Errorf("file cache: value for %q is not valid JSON", key)
	}
	return c.mutate(ctx, func(store map[string]json.RawMessage) {
		store[key] = json.RawMessage(value)
	})
}

// Delete removes a value.
func (c *FileClient) Delete(ctx context.Context, key string) error {
	return c.mutate(ctx, func(store map[string]json.RawMessage) {
		delete(store, key)
	})
}

// DeleteByPrefix removes all keys with the given prefix.
func (c *FileClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	return c.mutate(ctx, func(store map[string]json.RawMessage) {
		for k := range store {
			if strings.HasPrefix(k, prefix) {
				delete(store, k)
			}
		}
	})
}

// Close releases nothing; the file is opened per operation.
func (c *FileClient) Close() error {
	return nil
}

func (c *FileClient) mutate(ctx context.Context, fn func(map[string]json.RawMessage)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("file cache: lock: %w", err)
	}
	defer func() { _ = c.lock.Unlock() }()

	store, err := c.read()
	if err != nil {
		return err
	}
	fn(store)
	return c.write(store)
}

// read loads the store. A missing or empty file is an empty store.
func (c *FileClient) read() (map[string]json.RawMessage, error) {
	store := make(map[string]json.RawMessage)
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file cache: read: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("file cache: decode %s: %w", c.path, err)
	}
	return store, nil
}

func (c *FileClient) write(store map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("file cache: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file cache: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file cache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file cache: close: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file cache: replace: %w", err)
	}
	return nil
}
