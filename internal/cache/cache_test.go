package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_RoundTrip(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	body := []byte(`{"data":{"assets":[{"slug":"solana"}]}}`)
	c.Put("abc123", body)

	got, ok := c.Get("abc123")
	require.True(t, ok)
	assert.Equal(t, body, got)
}

func TestFileCache_MissingKey(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	_, ok := c.Get("never-stored")
	assert.False(t, ok)
}

func TestFileCache_CorruptedEntryIsAMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"data": truncat`), 0o644))

	_, ok := c.Get("bad")
	assert.False(t, ok, "a corrupted entry must fall through to a live call")
}

func TestFileCache_DistinctKeysDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	c.Put("k1", []byte(`{"a":1}`))
	c.Put("k2", []byte(`{"b":2}`))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	_, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
