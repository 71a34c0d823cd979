// Package claims extracts quantity claims from Wikidata entities, following
// linked entities such as engine variants that carry their own figures.
package claims

import (
	"context"
	"sort"
	"strings"

	"github.com/luifiio/cougar/internal/observability"
	"github.com/luifiio/cougar/internal/specs"
	"github.com/luifiio/cougar/internal/wiki"
)

// InstanceOf is the Wikidata "instance of" property.
const InstanceOf = "P31"

// DefaultAllowKeywords mark a linked entity as relevant when found in its
// label or type labels.
var DefaultAllowKeywords = []string{
	"engine", "motor", "internal combustion", "vehicle", "car", "automobile", "model", "variant",
}

// Source is the subset of the knowledge-source client the extractor needs.
type Source interface {
	FetchEntityID(ctx context.Context, title string) (string, error)
	FetchEntity(ctx context.Context, id string) (*wiki.Entity, error)
	FetchLabel(ctx context.Context, id string) (string, error)
}

// Quantities maps a property ID to its quantity claims in claim order.
type Quantities map[string][]specs.Quantity

// Count is the total number of quantity claims.
func (q Quantities) Count() int {
	n := 0
	for _, v := range q {
		n += len(v)
	}
	return n
}

// First returns the first claim for a property.
func (q Quantities) First(prop string) (specs.Quantity, bool) {
	v := q[prop]
	if len(v) == 0 {
		return specs.Quantity{}, false
	}
	return v[0], true
}

// Linked is a relevant entity referenced from the main entity.
type Linked struct {
	Label      string     `json:"label"`
	Quantities Quantities `json:"quantities"`
	TypeLabels []string   `json:"p31_labels"`
}

// Block is the structured-claims view of one Wikipedia title.
type Block struct {
	EntityID    string            `json:"qid"`
	Description string            `json:"description,omitempty"`
	Quantities  Quantities        `json:"quantities"`
	Linked      map[string]Linked `json:"linked"`
}

// Richness counts the quantity properties on the entity plus every quantity
// claim on its accepted linked entities.
func (b *Block) Richness() int {
	if b == nil {
		return 0
	}
	n := len(b.Quantities)
	for _, l := range b.Linked {
		n += l.Quantities.Count()
	}
	return n
}

// Options tunes an Extractor.
type Options struct {
	AllowKeywords []string
	// MaxLinked caps how many linked entities are fetched; zero means no cap.
	MaxLinked int
}

// Extractor walks entity claims.
type Extractor struct {
	src     Source
	allow   []string
	max     int
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewExtractor creates an extractor. logger and metrics may be nil.
func NewExtractor(src Source, opts Options, logger *observability.Logger, metrics *observability.Metrics) *Extractor {
	allow := opts.AllowKeywords
	if len(allow) == 0 {
		allow = DefaultAllowKeywords
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Extractor{
		src:     src,
		allow:   allow,
		max:     opts.MaxLinked,
		logger:  logger.WithComponent("claims"),
		metrics: metrics,
	}
}

// ForTitle resolves title to its entity and gathers direct and linked
// quantities. Failures resolving the entity are returned; failures on
// individual linked entities or unit labels only drop that piece.
func (x *Extractor) ForTitle(ctx context.Context, title string) (*Block, error) {
	id, err := x.src.FetchEntityID(ctx, title)
	if err != nil {
		return nil, err
	}
	ent, err := x.src.FetchEntity(ctx, id)
	if err != nil {
		return nil, err
	}

	labels := NewLabelCache(x.src)
	return &Block{
		EntityID:    id,
		Description: ent.Description("en"),
		Quantities:  x.ExtractQuantities(ctx, ent, labels),
		Linked:      x.FetchLinkedQuantities(ctx, ent, labels),
	}, nil
}

// ExtractQuantities returns every quantity claim on ent with its unit label
// resolved through labels. Claims with unparseable amounts are skipped. A
// nil labels gets a fresh cache for this call.
func (x *Extractor) ExtractQuantities(ctx context.Context, ent *wiki.Entity, labels *LabelCache) Quantities {
	out := Quantities{}
	if ent == nil {
		return out
	}
	if labels == nil {
		labels = NewLabelCache(x.src)
	}

	for _, prop := range ent.Properties() {
		for _, c := range ent.Claims[prop] {
			qv, ok := c.MainSnak.DataValue.Quantity()
			if !ok {
				continue
			}
			amount, ok := wiki.ParseAmount(qv.Amount)
			if !ok {
				continue
			}
			out[prop] = append(out[prop], specs.Quantity{
				Amount:    amount,
				UnitLabel: labels.Unit(ctx, qv.Unit, x.degrade),
				RawUnit:   qv.Unit,
			})
		}
	}
	return out
}

// ExtractLinkedEntityIDs returns the distinct entity IDs referenced by any
// claim on ent, sorted.
func ExtractLinkedEntityIDs(ent *wiki.Entity) []string {
	if ent == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for _, claims := range ent.Claims {
		for _, c := range claims {
			if id, ok := c.MainSnak.DataValue.EntityID(); ok {
				seen[id] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FetchLinkedQuantities fetches each linked entity and keeps it when its
// label or instance-of labels contain an allow-listed keyword, or when it
// carries quantity claims of its own.
func (x *Extractor) FetchLinkedQuantities(ctx context.Context, ent *wiki.Entity, labels *LabelCache) map[string]Linked {
	out := map[string]Linked{}
	if ent == nil {
		return out
	}
	if labels == nil {
		labels = NewLabelCache(x.src)
	}

	ids := ExtractLinkedEntityIDs(ent)
	if x.max > 0 && len(ids) > x.max {
		x.logger.Debug().Str("entity", ent.ID).Int("linked", len(ids)).Int("max", x.max).Msg("capping linked entities")
		ids = ids[:x.max]
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		linked, err := x.src.FetchEntity(ctx, id)
		if err != nil {
			x.degrade("linked_entity", err)
			continue
		}

		label := linked.Label("en")
		typeLabels := []string{}
		for _, c := range linked.Claims[InstanceOf] {
			typeID, ok := c.MainSnak.DataValue.EntityID()
			if !ok {
				continue
			}
			if l := labels.Label(ctx, typeID, x.degrade); l != "" {
				typeLabels = append(typeLabels, l)
			}
		}

		qs := x.ExtractQuantities(ctx, linked, labels)
		if len(qs) == 0 && !x.relevant(label, typeLabels) {
			continue
		}
		out[id] = Linked{Label: label, Quantities: qs, TypeLabels: typeLabels}
	}
	return out
}

func (x *Extractor) relevant(label string, typeLabels []string) bool {
	combined := strings.ToLower(strings.Join(append([]string{label}, typeLabels...), " "))
	for _, kw := range x.allow {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

func (x *Extractor) degrade(op string, err error) {
	wiki.Degrade(x.logger, x.metrics, op, err)
}
