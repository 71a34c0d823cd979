// Package catalog provides the car catalog model and its JSON file storage.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/luifiio/cougar/internal/claims"
	"github.com/luifiio/cougar/internal/specs"
)

// Year is a model year. Catalog files carry it either as a number or as a
// string such as "1999-2002"; it is always written back as a string.
type Year string

// UnmarshalJSON accepts strings, numbers and null.
func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*y = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = Year(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("year: %w", err)
		}
		if i, err := n.Int64(); err == nil {
			*y = Year(strconv.FormatInt(i, 10))
		} else {
			*y = Year(n.String())
		}
	}
	return nil
}

// WikiSummary is the encyclopedia summary attached to an item.
type WikiSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	WikiURL     string `json:"wiki_url,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// Item is a catalog record. Members the catalog format does not model,
// such as images or performance blocks, are kept in Extra and written back.
type Item struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Manufacturer string        `json:"manufacturer"`
	Year         Year          `json:"year"`
	Slug         string        `json:"slug"`
	Specs        *specs.Bundle `json:"specs,omitempty"`
	Description  string        `json:"description"`
	Wiki         *WikiSummary  `json:"_wiki,omitempty"`
	Wikidata     *claims.Block `json:"_wikidata,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// HeavyFields are dropped from items before the catalog is published.
var HeavyFields = []string{"performance", "images", "rating", "ratings", "thumbs"}

var modeled = map[string]struct{}{
	"id": {}, "name": {}, "manufacturer": {}, "year": {}, "slug": {},
	"specs": {}, "description": {}, "_wiki": {}, "_wikidata": {},
}

type itemFields Item

// MarshalJSON writes modeled fields and then any preserved extras.
func (it Item) MarshalJSON() ([]byte, error) {
	base, err := marshalRaw(itemFields(it))
	if err != nil || len(it.Extra) == 0 {
		return base, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range it.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return marshalRaw(merged)
}

func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads an item and keeps unmodeled members in Extra.
func (it *Item) UnmarshalJSON(data []byte) error {
	var f itemFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if _, ok := modeled[k]; ok {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		f.Extra = all
	} else {
		f.Extra = nil
	}
	*it = Item(f)
	return nil
}

// StripHeavyFields removes HeavyFields from the item's extras.
func (it *Item) StripHeavyFields() {
	for _, k := range HeavyFields {
		delete(it.Extra, k)
	}
}

// SearchText is the text the local search matches against.
func (it *Item) SearchText() string {
	return strings.ToLower(it.Name + " " + it.Manufacturer + " " + string(it.Year))
}

// HasWiki reports whether the item carries an encyclopedia summary.
func (it *Item) HasWiki() bool {
	return it.Wiki != nil && it.Wiki.Title != ""
}
