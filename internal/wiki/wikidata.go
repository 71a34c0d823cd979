package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Entity is a Wikidata item restricted to the parts cougar reads.
type Entity struct {
	ID           string               `json:"id"`
	Missing      *string              `json:"missing,omitempty"`
	Labels       map[string]LangValue `json:"labels,omitempty"`
	Descriptions map[string]LangValue `json:"descriptions,omitempty"`
	Claims       map[string][]Claim   `json:"claims,omitempty"`
}

// LangValue is a language-tagged string.
type LangValue struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// Claim is a single statement on an entity.
type Claim struct {
	MainSnak Snak `json:"mainsnak"`
}

// Snak is the main value of a claim. DataValue is nil for "no value" and
// "unknown value" snaks.
type Snak struct {
	Property  string     `json:"property,omitempty"`
	DataValue *DataValue `json:"datavalue,omitempty"`
}

// DataValue is a typed claim value.
type DataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// QuantityValue is the value of a quantity-typed claim. Amount is a signed
// decimal string such as "+1998"; Unit is an entity URL or "1".
type QuantityValue struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// Label returns the label in lang, or "".
func (e *Entity) Label(lang string) string {
	if e == nil {
		return ""
	}
	return e.Labels[lang].Value
}

// Description returns the description in lang, or "".
func (e *Entity) Description(lang string) string {
	if e == nil {
		return ""
	}
	return e.Descriptions[lang].Value
}

// Properties returns the claimed property IDs in sorted order.
func (e *Entity) Properties() []string {
	if e == nil {
		return nil
	}
	props := make([]string, 0, len(e.Claims))
	for p := range e.Claims {
		props = append(props, p)
	}
	sort.Strings(props)
	return props
}

// Quantity decodes a quantity value.
func (d *DataValue) Quantity() (QuantityValue, bool) {
	var q QuantityValue
	if d == nil || d.Type != "quantity" {
		return q, false
	}
	if err := json.Unmarshal(d.Value, &q); err != nil {
		return q, false
	}
	return q, true
}

// EntityID decodes an entity reference value.
func (d *DataValue) EntityID() (string, bool) {
	if d == nil || d.Type != "wikibase-entityid" {
		return "", false
	}
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(d.Value, &v); err != nil || v.ID == "" {
		return "", false
	}
	return v.ID, true
}

// ParseAmount parses a quantity amount, tolerating a leading plus sign.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

type entitiesResponse struct {
	Entities map[string]Entity `json:"entities"`
}

// FetchEntityID resolves an English Wikipedia title to its Wikidata item ID.
func (c *Client) FetchEntityID(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("sites", "enwiki")
	params.Set("titles", title)
	params.Set("props", "info")
	params.Set("format", "json")

	var resp entitiesResponse
	if err := c.getJSON(ctx, "entity_id", c.cfg.WikidataAPI, params, &resp); err != nil {
		return "", err
	}

	ids := make([]string, 0, len(resp.Entities))
	for id, ent := range resp.Entities {
		// Unmatched titles come back under negative placeholder keys.
		if strings.HasPrefix(id, "-") || ent.Missing != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return "", ErrNotFound
	}
	sort.Strings(ids)
	return ids[0], nil
}

// FetchEntity returns claims, English labels and English descriptions for id.
func (c *Client) FetchEntity(ctx context.Context, id string) (*Entity, error) {
	return c.fetchEntity(ctx, "entity", id, "claims|labels|descriptions")
}

// FetchLabel returns the English label of id, or "" when it has none.
func (c *Client) FetchLabel(ctx context.Context, id string) (string, error) {
	ent, err := c.fetchEntity(ctx, "label", id, "labels")
	if err != nil {
		return "", err
	}
	return ent.Label("en"), nil
}

func (c *Client) fetchEntity(ctx context.Context, op, id, props string) (*Entity, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", id)
	params.Set("props", props)
	params.Set("languages", "en")
	params.Set("format", "json")

	var resp entitiesResponse
	if err := c.getJSON(ctx, op, c.cfg.WikidataAPI, params, &resp); err != nil {
		return nil, err
	}

	ent, ok := resp.Entities[id]
	if !ok {
		if len(resp.Entities) == 0 {
			return nil, parseErr(op, fmt.Errorf("no entities in response for %s", id))
		}
		return nil, ErrNotFound
	}
	if ent.Missing != nil {
		return nil, ErrNotFound
	}
	if ent.ID == "" {
		ent.ID = id
	}
	return &ent, nil
}
