package store

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/planetfeed/planetfeed/app/feed"
)

// Store is the durable mapping from entry identity to normalized entry
// record: one JSON file per entry, addressable by a filename derived
// deterministically from (link or source URL) + title. The directory is
// the data source of the external site generator.
type Store struct {
	dir string
}

func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "entries")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Put upserts the entry record. Reprocessing the same entry overwrites the
// same file; the write is atomic (temp file + rename).
func (s *Store) Put(entry feed.Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	name := Filename(entry)
	tmp := filepath.Join(s.dir, "."+name+".tmp")
	final := filepath.Join(s.dir, name)

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write entry file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize entry file: %w", err)
	}

	return nil
}

// ListAll returns every stored entry sorted by pubDate descending.
// Ordering of equal timestamps is unspecified. Corrupt records are logged
// and skipped.
func (s *Store) ListAll() ([]feed.Entry, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list entry files: %w", err)
	}

	entries := make([]feed.Entry, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			slog.Warn("Failed to read entry record", "file", file, "error", err)
			continue
		}

		var entry feed.Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			slog.Warn("Skipping corrupt entry record", "file", file, "error", err)
			continue
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PubDate.After(entries[j].PubDate)
	})

	return entries, nil
}

// PruneStaleForSource removes records attributed to sourceURL whose
// filenames are absent from keep, guarding against deleted upstream items
// accumulating forever. Returns the number of records removed.
func (s *Store) PruneStaleForSource(sourceURL string, keep map[string]bool) (int, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list entry files: %w", err)
	}

	removed := 0
	for _, file := range files {
		name := filepath.Base(file)
		if keep[name] {
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		var entry feed.Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if entry.FeedSource != sourceURL {
			continue
		}

		if err := os.Remove(file); err != nil {
			slog.Warn("Failed to prune stale entry", "file", file, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

// Stats returns per-source entry counts.
func (s *Store) Stats() (map[string]int, error) {
	entries, err := s.ListAll()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int)
	for _, entry := range entries {
		stats[entry.FeedSource]++
	}

	return stats, nil
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives the record filename for an entry. The (link|source,
// title) pair maps deterministically to slug(title)-hash12.json: the slug
// keeps records human-browsable, the hash keeps them collision-resistant.
func Filename(entry feed.Entry) string {
	identity := cmp.Or(entry.Link, entry.FeedSource)

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", identity, entry.Title)))
	digest := hex.EncodeToString(sum[:])[:12]

	slug := slugStripRe.ReplaceAllString(strings.ToLower(entry.Title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 48 {
		slug = strings.Trim(slug[:48], "-")
	}
	if slug == "" {
		slug = "entry"
	}

	return slug + "-" + digest + ".json"
}
