package external

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalObjectStore persists image bytes to a directory on disk and returns
// an opaque uuid key. Deployments behind an actual CDN/object store supply
// a different ObjectStore implementation.
type LocalObjectStore struct {
	baseDir string
}

func NewLocalObjectStore(baseDir string) *LocalObjectStore {
	return &LocalObjectStore{baseDir: baseDir}
}

func (s *LocalObjectStore) Put(ctx context.Context, bytes []byte, mime string) (string, error) {
	key := uuid.New().String()
	path := filepath.Join(s.baseDir, key)
	if err := os.WriteFile(path, bytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return key, nil
}

func (s *LocalObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, key))
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}
