package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teranos/htsmatch/errors"
)

// Selection is the saved set of categories that `classify` works through by default.
type Selection struct {
	Categories []int64   `yaml:"categories"`
	SavedAt    time.Time `yaml:"saved_at,omitempty"`
}

// LoadSelection reads a selection file. A missing file is an empty selection.
func LoadSelection(path string) (*Selection, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Selection{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read category selection %s", path)
	}

	var sel Selection
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return nil, errors.Wrapf(err, "failed to parse category selection %s", path)
	}
	return &sel, nil
}

// Save writes the selection, sorted, stamping SavedAt.
func (s *Selection) Save(path string, now time.Time) error {
	s.SavedAt = now.UTC()
	sort.Slice(s.Categories, func(i, j int) bool { return s.Categories[i] < s.Categories[j] })

	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to encode category selection")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write category selection %s", path)
	}
	return nil
}

// Add selects ids, ignoring ones already selected.
func (s *Selection) Add(ids ...int64) {
	have := s.set()
	for _, id := range ids {
		if !have[id] {
			s.Categories = append(s.Categories, id)
			have[id] = true
		}
	}
}

// Remove deselects ids.
func (s *Selection) Remove(ids ...int64) {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.Categories[:0]
	for _, id := range s.Categories {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	s.Categories = kept
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id int64) bool {
	return s.set()[id]
}

func (s *Selection) set() map[int64]bool {
	m := make(map[int64]bool, len(s.Categories))
	for _, id := range s.Categories {
		m[id] = true
	}
	return m
}
