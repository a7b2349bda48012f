package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"

	"feedboard/models"
)

// Store holds every post ever seen, deduplicated by link, and persists it as
// gzip-compressed JSON. Posts are only ever appended.
type Store struct {
	mu      sync.RWMutex
	path    string
	history models.History
	now     func() time.Time
}

// Open loads the snapshot at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithFields(log.Fields{
			"path": path,
		}).Info("No history found, starting empty")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	history, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}
	s.history = history

	log.WithFields(log.Fields{
		"path":       path,
		"posts":      len(history.Posts),
		"lastUpdate": history.LastUpdate.Format(time.RFC3339),
	}).Info("Loaded history")
	historyPosts.Set(float64(len(history.Posts)))

	return s, nil
}

// Merge appends the posts of incoming whose link is not in existing, nor
// earlier in incoming. The first post seen for a link wins. It returns the
// merged slice and the number of appended posts.
func Merge(existing, incoming []models.Post) ([]models.Post, int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, p := range existing {
		seen[p.Link] = struct{}{}
	}

	merged := make([]models.Post, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	added := 0
	for _, p := range incoming {
		if _, ok := seen[p.Link]; ok {
			continue
		}
		seen[p.Link] = struct{}{}
		merged = append(merged, p)
		added++
	}
	return merged, added
}

// Add merges incoming into the store, refreshes the last update time and
// persists the result. The in-memory state keeps the merged posts even when
// persisting fails.
func (s *Store) Add(incoming []models.Post) (int, error) {
	s.mu.Lock()
	merged, added := Merge(s.history.Posts, incoming)
	s.history.Posts = merged
	s.history.LastUpdate = s.now()
	total := len(merged)
	s.mu.Unlock()

	postsAdded.Add(float64(added))
	historyPosts.Set(float64(total))

	log.WithFields(log.Fields{
		"added": added,
		"total": total,
	}).Info("Merged posts into history")

	return added, s.Persist()
}

// Persist writes the store to disk. The file is replaced atomically.
func (s *Store) Persist() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		persistErrors.Inc()
		return fmt.Errorf("persist history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, s.history); err != nil {
		tmp.Close()
		persistErrors.Inc()
		return fmt.Errorf("persist history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		persistErrors.Inc()
		return fmt.Errorf("persist history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		persistErrors.Inc()
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// Posts returns a copy of the stored posts in insertion order
func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Post(nil), s.history.Posts...)
}

func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.LastUpdate
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history.Posts)
}

func (s *Store) Path() string {
	return s.path
}

func encode(w io.Writer, history models.History) error {
	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(history); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func decode(r io.Reader) (models.History, error) {
	var history models.History
	zr, err := gzip.NewReader(r)
	if err != nil {
		return history, err
	}
	defer zr.Close()

	if err := json.NewDecoder(zr).Decode(&history); err != nil {
		return history, err
	}
	return history, nil
}
