// Package specs holds the vehicle spec bundle, infobox label mapping and the
// free-text unit parsers that derive normalized numeric fields.
package specs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Canonical spec names recognized in infoboxes.
const (
	Engine       = "engine"
	Power        = "power"
	Displacement = "displacement"
	Torque       = "torque"
	Transmission = "transmission"
	Drivetrain   = "drivetrain"
	Weight       = "weight"
	Production   = "production"
)

// UnresolvedPrefix marks structured claims kept verbatim because their unit
// was not recognized.
const UnresolvedPrefix = "wikidata_"

// Quantity is a numeric structured claim with its resolved unit label.
type Quantity struct {
	Amount    float64 `json:"amount"`
	UnitLabel string  `json:"unit_label,omitempty"`
	RawUnit   string  `json:"raw_unit,omitempty"`
}

// Bundle maps spec names to raw infobox text plus the numeric fields derived
// from it. A missing key means unknown, never zero.
//
// On the wire a Bundle is one flat JSON object: strings are raw text,
// numbers are derived values, and wikidata_* objects are unresolved claims.
// Any other member is preserved as-is.
type Bundle struct {
	Raw        map[string]string
	Values     map[string]float64
	Unresolved map[string]Quantity
	Extra      map[string]json.RawMessage
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{
		Raw:    make(map[string]string),
		Values: make(map[string]float64),
	}
}

// Len is the number of distinct keys, used as the richness of a cached item.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Raw) + len(b.Values) + len(b.Unresolved) + len(b.Extra)
}

// RawLen is the number of raw infobox fields.
func (b *Bundle) RawLen() int {
	if b == nil {
		return 0
	}
	return len(b.Raw)
}

// Text returns the raw text for a spec name.
func (b *Bundle) Text(name string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.Raw[name]
	return v, ok
}

// Value returns a derived numeric field.
func (b *Bundle) Value(key string) (float64, bool) {
	if b == nil {
		return 0, false
	}
	v, ok := b.Values[key]
	return v, ok
}

// SetText records raw text unless it is blank.
func (b *Bundle) SetText(name, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.Raw == nil {
		b.Raw = make(map[string]string)
	}
	b.Raw[name] = text
}

// SetValue records a derived numeric field.
func (b *Bundle) SetValue(key string, v float64) {
	if b.Values == nil {
		b.Values = make(map[string]float64)
	}
	b.Values[key] = v
}

// Merge copies every derived field in fields into the bundle, overwriting.
func (b *Bundle) Merge(fields map[string]float64) {
	for k, v := range fields {
		b.SetValue(k, v)
	}
}

// SetUnresolved keeps a structured claim whose unit was not recognized.
func (b *Bundle) SetUnresolved(propertyID string, q Quantity) {
	if b.Unresolved == nil {
		b.Unresolved = make(map[string]Quantity)
	}
	b.Unresolved[UnresolvedPrefix+propertyID] = q
}

// Keys returns all keys sorted.
func (b *Bundle) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, 0, b.Len())
	for k := range b.Raw {
		keys = append(keys, k)
	}
	for k := range b.Values {
		keys = append(keys, k)
	}
	for k := range b.Unresolved {
		keys = append(keys, k)
	}
	for k := range b.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON writes the bundle as a flat object.
func (b Bundle) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, b.Len())
	for k, v := range b.Extra {
		flat[k] = v
	}
	for k, v := range b.Raw {
		flat[k] = v
	}
	for k, v := range b.Values {
		flat[k] = v
	}
	for k, v := range b.Unresolved {
		flat[k] = v
	}
	return marshalRaw(flat)
}

// marshalRaw is json.Marshal without HTML escaping, so infobox text such as
// "<" or "&" is written as is.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads a flat object written by MarshalJSON or by hand.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = Bundle{}
		return nil
	}

	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("decode spec bundle: %w", err)
	}

	out := NewBundle()
	for k, raw := range flat {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			continue
		}
		switch trimmed[0] {
		case '"':
			var s string
			if err := json.Unmarshal(trimmed, &s); err == nil {
				out.Raw[k] = s
				continue
			}
		case '{':
			if strings.HasPrefix(k, UnresolvedPrefix) {
				var q Quantity
				if err := json.Unmarshal(trimmed, &q); err == nil {
					if out.Unresolved == nil {
						out.Unresolved = make(map[string]Quantity)
					}
					out.Unresolved[k] = q
					continue
				}
			}
		default:
			var f float64
			if err := json.Unmarshal(trimmed, &f); err == nil {
				out.Values[k] = f
				continue
			}
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = append(json.RawMessage(nil), trimmed...)
	}
	*b = *out
	return nil
}
