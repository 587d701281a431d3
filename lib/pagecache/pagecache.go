// Package pagecache is a TTL-bounded file cache for fetched pages, so
// repeat runs against unchanged sites do not hammer them. One content
// file per url named by a hash of the url, plus a single index file
// rewritten in full on every mutation. Last writer wins; a single
// active process is assumed.
package pagecache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("lib/pagecache")

const DefaultTTL = 12 * time.Hour

const indexFile = "index.json"

type indexEntry struct {
	Filename string    `json:"filename"`
	CachedAt time.Time `json:"cached_at"`
}

type Cache struct {
	dir string
}

func New(dir string) Cache {
	return Cache{dir: dir}
}

func filenameFor(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:]) + ".html"
}

// a missing or corrupt index is just an empty cache
func (c Cache) loadIndex() map[string]indexEntry {
	contents, err := os.ReadFile(filepath.Join(c.dir, indexFile))
	if err != nil {
		return map[string]indexEntry{}
	}
	index := map[string]indexEntry{}
	err = json.Unmarshal(contents, &index)
	if err != nil {
		slog.Warn("discarding corrupt cache index", "err", err)
		return map[string]indexEntry{}
	}
	return index
}

func (c Cache) saveIndex(index map[string]indexEntry) error {
	err := os.MkdirAll(c.dir, 0o755)
	if err != nil {
		return err
	}
	contents, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, indexFile), contents, 0o644)
}

// Get returns cached content for the url when an index entry exists,
// its backing file exists, and the entry is younger than ttl. Every
// failure mode is a miss, never an error.
func (c Cache) Get(ctx context.Context, url string, ttl time.Duration) (string, bool) {
	_, span := tracer.Start(ctx, "Get")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	entry, ok := c.loadIndex()[url]
	if !ok {
		return "", false
	}
	if time.Since(entry.CachedAt) > ttl {
		span.AddEvent("cache entry expired")
		return "", false
	}
	contents, err := os.ReadFile(filepath.Join(c.dir, entry.Filename))
	if err != nil {
		span.AddEvent("cache entry missing backing file")
		return "", false
	}
	return string(contents), true
}

// Set persists content for the url, overwriting any prior entry.
func (c Cache) Set(ctx context.Context, url, content string) error {
	_, span := tracer.Start(ctx, "Set")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	err := os.MkdirAll(c.dir, 0o755)
	if err != nil {
		return err
	}

	filename := filenameFor(url)
	err = os.WriteFile(filepath.Join(c.dir, filename), []byte(content), 0o644)
	if err != nil {
		return err
	}

	index := c.loadIndex()
	index[url] = indexEntry{Filename: filename, CachedAt: time.Now().UTC()}
	return c.saveIndex(index)
}

// Clear removes all content files and the index.
func (c Cache) Clear() error {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.html"))
	if err != nil {
		return err
	}
	for _, f := range files {
		err = os.Remove(f)
		if err != nil {
			return err
		}
	}
	err = os.Remove(filepath.Join(c.dir, indexFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

type Stats struct {
	Entries int
	// ages of the oldest and newest entries; zero when empty
	Oldest time.Duration
	Newest time.Duration
}

func (c Cache) Stats() Stats {
	index := c.loadIndex()
	stats := Stats{Entries: len(index)}

	now := time.Now().UTC()
	for _, entry := range index {
		age := now.Sub(entry.CachedAt)
		if age > stats.Oldest {
			stats.Oldest = age
		}
		if stats.Newest == 0 || age < stats.Newest {
			stats.Newest = age
		}
	}
	return stats
}
