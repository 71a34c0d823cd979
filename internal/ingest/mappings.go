package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/luifiio/cougar/internal/catalog"
)

// Mappings pins catalog items to Wikipedia titles. Keys are an item's name,
// its slug, or "manufacturer name".
type Mappings map[string]string

// LoadMappings reads a mappings file. A missing file yields no mappings.
func LoadMappings(path string) (Mappings, error) {
	if path == "" {
		return Mappings{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Mappings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}
	var m Mappings
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode mappings: %w", err)
	}
	if m == nil {
		m = Mappings{}
	}
	return m, nil
}

// Lookup returns the pinned title for item, trying name, then slug, then
// "manufacturer name".
func (m Mappings) Lookup(item *catalog.Item) (string, bool) {
	name := ItemName(item)
	keys := []string{name, item.Slug, strings.TrimSpace(item.Manufacturer + " " + name)}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if title, ok := m[k]; ok && title != "" {
			return title, true
		}
	}
	return "", false
}

// ItemName returns the item's name, falling back to a "model" member.
func ItemName(item *catalog.Item) string {
	if item.Name != "" {
		return item.Name
	}
	raw, ok := item.Extra["model"]
	if !ok {
		return ""
	}
	var model string
	if err := json.Unmarshal(raw, &model); err != nil {
		return ""
	}
	return model
}
