package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/utils"
)

// Store is a TTL-bounded content cache over plain files. Every entry is
// one JSON file named after the SHA-256 of its key, grouped under a
// namespace subdirectory. Eviction is lazy: an expired entry stays on
// disk until a fetch replaces it. One process owns the directory, so
// there is no file locking.
type Store struct {
	dir string
	now func() time.Time
}

// Entry is the on-disk shape of one cached value.
type Entry struct {
	FetchedAt time.Time `json:"fetched_at"`
	Body      []byte    `json:"body"`
	ETag      string    `json:"etag,omitempty"`
}

// FetchFunc produces the value for a cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the cache root, for archiving.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(ns, key string) string {
	return filepath.Join(s.dir, ns, utils.SHA256Hex(key)+".json")
}

// GetOrFetch returns the cached body when the entry is younger than
// ttl, otherwise invokes fetch exactly once and stores its result. A
// fetch error propagates unchanged and writes nothing, so a transient
// failure can never shadow a future good answer. ttl <= 0 always
// refetches.
func (s *Store) GetOrFetch(ctx context.Context, ns, key string, ttl time.Duration, fetch FetchFunc) ([]byte, error) {
	if e := s.read(ns, key); e != nil && ttl > 0 && s.now().Sub(e.FetchedAt) < ttl {
		return e.Body, nil
	}

	body, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Put(ns, key, body, ""); err != nil {
		return nil, err
	}
	return body, nil
}

// Entry returns the stored entry regardless of age, or nil when the
// key was never cached. Conditional requests use this to recover the
// previous ETag from an expired entry.
func (s *Store) Entry(ns, key string) *Entry {
	return s.read(ns, key)
}

// Fresh reports whether a cached entry exists and is younger than ttl.
func (s *Store) Fresh(ns, key string, ttl time.Duration) bool {
	e := s.read(ns, key)
	return e != nil && ttl > 0 && s.now().Sub(e.FetchedAt) < ttl
}

// Put stores body (and an optional upstream ETag) under ns/key,
// stamping it with the current time. The write is atomic.
func (s *Store) Put(ns, key string, body []byte, etag string) error {
	if err := os.MkdirAll(filepath.Join(s.dir, ns), 0o755); err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", ns, err)
	}
	e := Entry{FetchedAt: s.now().UTC(), Body: body, ETag: etag}
	return utils.WriteJSONAtomic(s.path(ns, key), e)
}

// Touch refreshes the timestamp of an existing entry without changing
// its body. Used after a 304 Not Modified: the content is still
// current, only its age resets.
func (s *Store) Touch(ns, key string) error {
	e := s.read(ns, key)
	if e == nil {
		return fmt.Errorf("cannot touch missing cache entry %s/%s", ns, key)
	}
	e.FetchedAt = s.now().UTC()
	return utils.WriteJSONAtomic(s.path(ns, key), e)
}

// read loads an entry, treating absent or unreadable files as a miss.
func (s *Store) read(ns, key string) *Entry {
	data, err := os.ReadFile(s.path(ns, key))
	if err != nil {
		return nil
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		logger.Debug("discarding corrupt cache entry %s/%s: %v", ns, key, err)
		return nil
	}
	return &e
}

// NamespaceStats summarizes one cache namespace for inspection.
type NamespaceStats struct {
	Name      string
	Entries   int
	SizeBytes int64
	Oldest    time.Time
}

// Stats walks the cache directory and aggregates per-namespace counts.
func (s *Store) Stats() ([]NamespaceStats, error) {
	dirs, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var out []NamespaceStats
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		ns := NamespaceStats{Name: d.Name()}
		entries, err := os.ReadDir(filepath.Join(s.dir, d.Name()))
		if err != nil {
			return nil, err
		}
		for _, f := range entries {
			info, err := f.Info()
			if err != nil {
				continue
			}
			ns.Entries++
			ns.SizeBytes += info.Size()
			if ns.Oldest.IsZero() || info.ModTime().Before(ns.Oldest) {
				ns.Oldest = info.ModTime()
			}
		}
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Clear removes every namespace directory. The cache root survives.
func (s *Store) Clear() error {
	dirs, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, d.Name())); err != nil {
			return fmt.Errorf("failed to clear namespace %s: %w", d.Name(), err)
		}
	}
	return nil
}
