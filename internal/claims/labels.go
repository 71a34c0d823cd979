package claims

import (
	"context"
	"strings"
)

// LabelFetcher resolves an entity ID to its English label.
type LabelFetcher interface {
	FetchLabel(ctx context.Context, id string) (string, error)
}

// LabelCache memoizes entity labels for the duration of one extraction.
// It is not safe for concurrent use; create one per call.
type LabelCache struct {
	src     LabelFetcher
	labels  map[string]string
	fetches int
}

// NewLabelCache returns an empty cache backed by src.
func NewLabelCache(src LabelFetcher) *LabelCache {
	return &LabelCache{src: src, labels: make(map[string]string)}
}

// Unit resolves a quantity unit. Units that are not entity URLs, such as
// "1" for dimensionless amounts, are returned unchanged.
func (c *LabelCache) Unit(ctx context.Context, unit string, onErr func(op string, err error)) string {
	if unit == "" {
		return ""
	}
	if !strings.HasPrefix(unit, "http") {
		return unit
	}
	id := unit[strings.LastIndex(strings.TrimRight(unit, "/"), "/")+1:]
	id = strings.TrimRight(id, "/")
	return c.lookup(ctx, "unit_label", id, onErr)
}

// Label resolves an entity ID.
func (c *LabelCache) Label(ctx context.Context, id string, onErr func(op string, err error)) string {
	if id == "" {
		return ""
	}
	return c.lookup(ctx, "type_label", id, onErr)
}

// Fetches reports how many upstream lookups the cache made.
func (c *LabelCache) Fetches() int {
	return c.fetches
}

// lookup caches failures as empty labels so a bad unit is tried once.
func (c *LabelCache) lookup(ctx context.Context, op, id string, onErr func(string, error)) string {
	if l, ok := c.labels[id]; ok {
		return l
	}
	c.fetches++
	label, err := c.src.FetchLabel(ctx, id)
	if err != nil {
		if onErr != nil {
			onErr(op, err)
		}
		label = ""
	}
	c.labels[id] = label
	return label
}
