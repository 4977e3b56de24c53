// Package cache provides a file-backed store for raw API responses, keyed by
// the query digest. It lets repeated notebook-style runs replay earlier
// responses instead of spending API credits.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileCache stores one JSON response per file under a directory.
type FileCache struct {
	dir string
}

// New creates the cache directory if needed and returns the cache.
func New(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Get returns the cached response for key. A missing or corrupted entry is
// a miss; the caller falls through to a live call.
func (c *FileCache) Get(key string) ([]byte, bool) {
	body, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	if !json.Valid(body) {
		logrus.WithField("key", key).Debug("Discarding corrupted cache entry")
		return nil, false
	}
	return body, true
}

// Put stores a response under key. Write failures are logged and swallowed;
// caching is best-effort.
func (c *FileCache) Put(key string, body []byte) {
	if err := os.WriteFile(c.path(key), body, 0o644); err != nil {
		logrus.WithField("key", key).Debugf("Failed to write cache entry: %v", err)
	}
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}
