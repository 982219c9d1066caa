package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalStore writes objects below a directory on disk. The API server
// serves that directory under baseURL.
type LocalStore struct {
	basePath string
	baseURL  string
	mu       sync.Mutex
}

var _ ObjectStore = (*LocalStore)(nil)

// NewLocalStore creates basePath if needed.
func NewLocalStore(basePath, baseURL string) (*LocalStore, error) {
	if basePath == "" {
		return nil, errors.New("base path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStore{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put writes data to {basePath}/{key}. Existing objects are never overwritten.
func (s *LocalStore) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.Path(key)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("object data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create object %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// Path returns the file path for key, rejecting keys that escape basePath.
func (s *LocalStore) Path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if key == "" || clean == string(filepath.Separator) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.basePath, clean), nil
}

// Dir returns the directory objects are written to.
func (s *LocalStore) Dir() string { return s.basePath }

// PublicURL returns the URL an object is served at.
func (s *LocalStore) PublicURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/")
}

// Name returns "local".
func (s *LocalStore) Name() string { return "local" }
