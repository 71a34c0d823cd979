package claims_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luifiio/cougar/internal/claims"
	"github.com/luifiio/cougar/internal/config"
	"github.com/luifiio/cougar/internal/wiki"
)

type entityStore map[string]*wiki.Entity

func (s entityStore) FetchEntityID(_ context.Context, title string) (string, error) {
	for id, e := range s {
		if e.Label("en") == title {
			return id, nil
		}
	}
	return "", wiki.ErrNotFound
}

func (s entityStore) FetchEntity(_ context.Context, id string) (*wiki.Entity, error) {
	if e, ok := s[id]; ok {
		return e, nil
	}
	return nil, wiki.ErrNotFound
}

func (s entityStore) FetchLabel(_ context.Context, id string) (string, error) {
	if id == "Q2304" {
		return "kilowatt", nil
	}
	return "", wiki.ErrNotFound
}

func rawValue(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func labelled(id, label string, cl map[string][]wiki.Claim) *wiki.Entity {
	return &wiki.Entity{
		ID:     id,
		Labels: map[string]wiki.LangValue{"en": {Language: "en", Value: label}},
		Claims: cl,
	}
}

// Cars routinely link dozens of countries, designers and predecessors; the
// engine entity must be reached whatever its id sorts as.
func TestForTitle_DefaultConfigWalksEveryLinkedEntity(t *testing.T) {
	store := entityStore{}
	var refs []wiki.Claim
	for i := 0; i < 29; i++ {
		id := fmt.Sprintf("Q%03d", i)
		store[id] = labelled(id, "Place "+id, nil)
		refs = append(refs, wiki.Claim{MainSnak: wiki.Snak{Property: "P495", DataValue: &wiki.DataValue{
			Type: "wikibase-entityid", Value: rawValue(t, map[string]string{"id": id}),
		}}})
	}
	store["Q9999"] = labelled("Q9999", "RB26DETT", map[string][]wiki.Claim{
		"P2109": {{MainSnak: wiki.Snak{Property: "P2109", DataValue: &wiki.DataValue{
			Type:  "quantity",
			Value: rawValue(t, wiki.QuantityValue{Amount: "+206", Unit: "http://www.wikidata.org/entity/Q2304"}),
		}}}},
	})
	refs = append(refs, wiki.Claim{MainSnak: wiki.Snak{Property: "P516", DataValue: &wiki.DataValue{
		Type: "wikibase-entityid", Value: rawValue(t, map[string]string{"id": "Q9999"}),
	}}})
	store["Q1"] = labelled("Q1", "Nissan Skyline GT-R", map[string][]wiki.Claim{"P495": refs})

	cfg := config.DefaultConfig()
	x := claims.NewExtractor(store, claims.Options{MaxLinked: cfg.Source.MaxLinkedEntities}, nil, nil)
	block, err := x.ForTitle(context.Background(), "Nissan Skyline GT-R")
	require.NoError(t, err)

	require.Contains(t, block.Linked, "Q9999")
	q, ok := block.Linked["Q9999"].Quantities.First("P2109")
	require.True(t, ok)
	assert.Equal(t, 206.0, q.Amount)
	assert.Equal(t, "kilowatt", q.UnitLabel)
	assert.Equal(t, 1, block.Richness())
}
