package modelstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry describes one cached weights file. Name is derived from the file
// base name without its extension.
type Entry struct {
	Name      string
	SizeBytes int64
	Path      string
}

// Store is a read view over the on-disk model cache. Nothing is indexed
// or persisted; every query re-reads the directory so results always
// match the filesystem.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// PathFor returns where a weights file with the given base name would
// live inside the cache.
func (s *Store) PathFor(fileName string) string {
	return filepath.Join(s.dir, fileName)
}

// List enumerates cached weights files, sorted by name. A missing cache
// directory yields an empty list, not an error.
func (s *Store) List() ([]Entry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read cache directory %s: %w", s.dir, err)
	}

	models := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pt") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		models = append(models, Entry{
			Name:      name,
			SizeBytes: info.Size(),
			Path:      filepath.Join(s.dir, entry.Name()),
		})
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// Delete removes one cached weights file. Failures are returned to the
// caller; nothing is retried or swallowed.
func (s *Store) Delete(entry Entry) error {
	if err := os.Remove(entry.Path); err != nil {
		return fmt.Errorf("delete model %s: %w", entry.Name, err)
	}
	return nil
}

// TotalSize sums the sizes of all cached weights files.
func (s *Store) TotalSize() (int64, error) {
	models, err := s.List()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, model := range models {
		total += model.SizeBytes
	}
	return total, nil
}
