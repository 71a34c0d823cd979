package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// carKeywords mark a summary as describing a car.
var carKeywords = []string{"car", "automobile", "roadster", "sports car", "convertible", "sedan", "coupe"}

// Load reads a catalog file. A missing file is an empty catalog. A file
// holding a single object is treated as a one-item catalog.
func Load(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Decode(data)
}

// Decode parses catalog JSON.
func Decode(data []byte) ([]Item, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Item{}, nil
	}
	if data[0] == '{' {
		var it Item
		if err := json.Unmarshal(data, &it); err != nil {
			return nil, fmt.Errorf("decode catalog item: %w", err)
		}
		return []Item{it}, nil
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Save writes items as indented JSON, creating the parent directory.
func Save(path string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Search returns items whose name, manufacturer and year contain q,
// case-insensitively. An empty q returns every item.
func Search(items []Item, q string) []Item {
	if q == "" {
		return items
	}
	needle := strings.ToLower(q)
	out := []Item{}
	for i := range items {
		if strings.Contains(items[i].SearchText(), needle) {
			out = append(out, items[i])
		}
	}
	return out
}

// LikelyCar reports whether a summary looks like a car page: its
// description or extract mentions the manufacturer or a body-style keyword.
func LikelyCar(description, extract, manufacturer string) bool {
	text := strings.ToLower(description + " " + extract)
	if text == " " {
		return false
	}
	if m := strings.ToLower(strings.TrimSpace(manufacturer)); m != "" && strings.Contains(text, m) {
		return true
	}
	for _, kw := range carKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Store reads the catalog file on each call so batch ingestion results show
// up without a restart.
type Store struct {
	path string
}

// NewStore returns a store over path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the catalog file path.
func (s *Store) Path() string { return s.path }

// Items loads the whole catalog.
func (s *Store) Items() ([]Item, error) {
	return Load(s.path)
}

// Search loads the catalog and filters it with Search.
func (s *Store) Search(q string) ([]Item, error) {
	items, err := s.Items()
	if err != nil {
		return nil, err
	}
	return Search(items, q), nil
}
