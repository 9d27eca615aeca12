package cache

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileCache stores entries as JSON files under a directory. The CLI uses it
// for rendered artifacts and single-process servers for layouts.
//
// Entries live in <dir>/<kind>/<hash>.json, where kind is the key's first
// segment ("layout", "widgets", "gen", "artifact" or a scope prefix). Writes
// go through a temporary file and a rename so concurrent readers never see
// a partial entry.
type FileCache struct {
	dir string
}

// NewFileCache opens a cache rooted at dir, creating it when missing.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// fileEntry is the on-disk form of one cached value.
type fileEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (e fileEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Get returns the entry for key. Expired and unreadable entries are removed
// and reported as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	e, err := readEntry(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if e == nil || e.Key != key || e.expired(time.Now()) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return e.Data, true, nil
}

// Set writes data under key. A ttl of zero never expires.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	e := fileEntry{Key: key, Data: data}
	if ttl > 0 {
		e.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (c *FileCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close implements Cache.
func (c *FileCache) Close() error {
	return nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// Clear removes every entry and returns how many were removed.
func (c *FileCache) Clear() (int, error) {
	return c.sweep(func(*fileEntry) bool { return true })
}

// Prune removes expired and unreadable entries and returns how many were
// removed.
func (c *FileCache) Prune() (int, error) {
	now := time.Now()
	return c.sweep(func(e *fileEntry) bool { return e == nil || e.expired(now) })
}

// sweep removes the entries drop selects, then any kind directory left
// empty. drop receives nil for entries that cannot be decoded.
func (c *FileCache) sweep(drop func(*fileEntry) bool) (int, error) {
	kinds, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, kind := range kinds {
		if !kind.IsDir() {
			continue
		}
		sub := filepath.Join(c.dir, kind.Name())
		err := filepath.WalkDir(sub, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
				return err
			}
			e, err := readEntry(path)
			if err != nil && !os.IsNotExist(err) {
				return err
			}
			if err == nil && drop(e) && os.Remove(path) == nil {
				removed++
			}
			return nil
		})
		if err != nil {
			return removed, err
		}
		_ = os.Remove(sub)
	}
	return removed, nil
}

// readEntry decodes the entry at path. A file that does not decode yields a
// nil entry and no error.
func readEntry(path string) (*fileEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e fileEntry
	if json.Unmarshal(raw, &e) != nil {
		return nil, nil
	}
	return &e, nil
}

// path maps key to <dir>/<kind>/<hash>.json.
func (c *FileCache) path(key string) string {
	kind, _, _ := strings.Cut(key, ":")
	kind = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, kind)
	if kind == "" {
		kind = "misc"
	}
	return filepath.Join(c.dir, kind, Hash([]byte(key))+".json")
}

var _ Cache = (*FileCache)(nil)
