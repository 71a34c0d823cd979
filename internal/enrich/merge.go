package enrich

import (
	"math"
	"strings"

	"github.com/luifiio/cougar/internal/claims"
	"github.com/luifiio/cougar/internal/specs"
)

// PropertyMapping lists, per spec, the Wikidata properties tried in order.
// The first property with a claim is merged.
type PropertyMapping struct {
	Displacement []string `yaml:"displacement"`
	Power        []string `yaml:"power"`
	Mass         []string `yaml:"mass"`
}

// DefaultPropertyMapping covers the properties car items actually use:
// P8628 engine displacement, P1100 cylinder volume, P2109 installed power,
// P1112 the older power property, and P2067 mass.
func DefaultPropertyMapping() PropertyMapping {
	return PropertyMapping{
		Displacement: []string{"P8628", "P1100"},
		Power:        []string{"P2109", "P1112"},
		Mass:         []string{"P2067"},
	}
}

// MergeClaims folds the first recognized claim of each mapped property into
// b. Values from claims replace infobox-derived ones. Claims whose unit is
// not recognized are kept verbatim as wikidata_<property> entries.
func MergeClaims(b *specs.Bundle, q claims.Quantities, m PropertyMapping) {
	if b == nil || len(q) == 0 {
		return
	}
	if prop, v, ok := first(q, m.Displacement); ok {
		mergeDisplacement(b, prop, v)
	}
	if prop, v, ok := first(q, m.Power); ok {
		mergePower(b, prop, v)
	}
	if prop, v, ok := first(q, m.Mass); ok {
		mergeMass(b, prop, v)
	}
}

func first(q claims.Quantities, props []string) (string, specs.Quantity, bool) {
	for _, p := range props {
		if v, ok := q.First(p); ok {
			return p, v, true
		}
	}
	return "", specs.Quantity{}, false
}

func mergeDisplacement(b *specs.Bundle, prop string, v specs.Quantity) {
	unit := strings.ToLower(v.UnitLabel)
	if !strings.Contains(unit, "centimet") && !strings.Contains(unit, "cm") {
		b.SetUnresolved(prop, v)
		return
	}
	cc := math.Round(v.Amount)
	b.SetValue("displacement_cc", cc)
	b.SetValue("displacement_l", specs.Round3(cc/specs.CCPerL))
}

func mergePower(b *specs.Bundle, prop string, v specs.Quantity) {
	unit := strings.ToLower(v.UnitLabel)
	var kw float64
	switch {
	case strings.Contains(unit, "kilowatt"), strings.Contains(unit, "kw"):
		kw = v.Amount
	case strings.Contains(unit, "watt"):
		kw = v.Amount / 1000
	case strings.Contains(unit, "horsepower"), strings.Contains(unit, "hp"):
		b.SetValue("power_hp", specs.Round1(v.Amount))
		b.SetValue("power_kw", specs.Round1(v.Amount/specs.HPPerKW))
		return
	default:
		b.SetUnresolved(prop, v)
		return
	}
	b.SetValue("power_kw", specs.Round1(kw))
	b.SetValue("power_hp", specs.Round1(kw*specs.HPPerKW))
}

func mergeMass(b *specs.Bundle, prop string, v specs.Quantity) {
	unit := strings.ToLower(v.UnitLabel)
	var kg float64
	switch {
	case strings.Contains(unit, "kilogram"), strings.Contains(unit, "kg"):
		kg = v.Amount
	case strings.Contains(unit, "gram"):
		kg = v.Amount / 1000
	default:
		b.SetUnresolved(prop, v)
		return
	}
	b.SetValue("weight_kg", specs.Round1(kg))
	b.SetValue("weight_lb", specs.Round1(kg*specs.LBPerKG))
}
