package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// BriefStore keeps one markdown file per day, named <date key>.md.
type BriefStore struct {
	dir string
}

func NewBriefStore(dir string) *BriefStore {
	return &BriefStore{dir: dir}
}

func (s *BriefStore) Dir() string {
	return s.dir
}

func (s *BriefStore) Path(dateKey string) string {
	return filepath.Join(s.dir, dateKey+".md")
}

// List returns all stored briefs, newest date key first. Files whose name is
// not a valid date key are ignored. A missing directory yields no briefs.
func (s *BriefStore) List() ([]Brief, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(s.dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to list briefs: %w", err)
	}

	briefs := make([]Brief, 0, len(files))
	for _, file := range files {
		key := strings.TrimSuffix(filepath.Base(file), ".md")
		if _, err := ParseDateKey(key); err != nil {
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read brief %s: %w", file, err)
		}
		briefs = append(briefs, Brief{DateKey: key, Body: string(data)})
	}

	slices.SortFunc(briefs, func(a, b Brief) int {
		return strings.Compare(b.DateKey, a.DateKey)
	})

	return briefs, nil
}

func (s *BriefStore) Save(brief Brief) error {
	if _, err := ParseDateKey(brief.DateKey); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create brief directory: %w", err)
	}

	if err := WriteFileAtomic(s.Path(brief.DateKey), []byte(brief.Body)); err != nil {
		return fmt.Errorf("failed to save brief: %w", err)
	}

	return nil
}
