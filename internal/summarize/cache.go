package summarize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CacheEntry is one cached summary. Entries are immutable once written:
// a given (digest, model, length class) always maps to the same value, so the
// cache needs no invalidation beyond deleting the directory.
type CacheEntry struct {
	Summary string `json:"summary"`
	Tokens  int    `json:"tokens"`
}

// Cache is a content-addressed summary store: one JSON file per entry, named
// by digest, model and target-length class. The directory may be shared by
// concurrent runs; writes commit via rename so readers never observe a
// half-written entry.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed. Failure here is fatal to
// the run: silently disabling the cache would cause repeated paid remote
// calls without the caller's knowledge.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("summarize: create cache dir %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Digest returns the hex SHA-256 of raw file bytes. Hashing the bytes, not
// any normalized text, means every byte-level change rolls the key.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LengthClass buckets a target token count into power-of-two classes between
// 256 and 8192, so small budget fluctuations between runs still hit the
// cache.
func LengthClass(targetTokens int) string {
	class := 256
	for class < targetTokens && class < 8192 {
		class *= 2
	}
	return fmt.Sprintf("%d", class)
}

// Get looks up an entry. A missing or unparsable file is a miss, never an
// error: a corrupt entry just costs one remote call to regenerate.
func (c *Cache) Get(digest, model, class string) (CacheEntry, bool) {
	data, err := os.ReadFile(c.entryPath(digest, model, class))
	if err != nil {
		return CacheEntry{}, false
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return CacheEntry{}, false
	}
	return entry, true
}

// Put stores an entry atomically: write to a temp file in the same
// directory, then rename over the final name.
func (c *Cache) Put(digest, model, class string, entry CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("summarize: encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("summarize: cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("summarize: write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("summarize: close cache entry: %w", err)
	}

	final := c.entryPath(digest, model, class)
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("summarize: commit cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and leaves an empty cache directory behind.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("summarize: clear cache: %w", err)
	}
	return os.MkdirAll(c.dir, 0o755)
}

func (c *Cache) entryPath(digest, model, class string) string {
	return filepath.Join(c.dir, digest+"-"+sanitize(model)+"-"+class+".json")
}

// sanitize keeps model names filesystem-safe.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
