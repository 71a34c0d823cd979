package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luifiio/cougar/internal/catalog"
)

func TestLoadMappings(t *testing.T) {
	dir := t.TempDir()

	m, err := LoadMappings(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = LoadMappings("")
	require.NoError(t, err)
	assert.Empty(t, m)

	path := filepath.Join(dir, "mappings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Skyline GT-R": "Nissan Skyline GT-R"}`), 0o644))
	m, err = LoadMappings(path)
	require.NoError(t, err)
	assert.Equal(t, Mappings{"Skyline GT-R": "Nissan Skyline GT-R"}, m)

	require.NoError(t, os.WriteFile(path, []byte(`[1, 2]`), 0o644))
	_, err = LoadMappings(path)
	assert.ErrorContains(t, err, "decode mappings")
}

func TestMappingsLookup(t *testing.T) {
	m := Mappings{
		"Miata":          "Mazda MX-5",
		"supra-mk4":      "Toyota Supra",
		"Honda NSX":      "Honda NSX",
		"Blank":          "",
		"Nissan Skyline": "Nissan Skyline",
	}
	tests := []struct {
		name  string
		item  catalog.Item
		want  string
		found bool
	}{
		{"by name", catalog.Item{Name: "Miata", Slug: "supra-mk4"}, "Mazda MX-5", true},
		{"by slug", catalog.Item{Name: "Supra", Slug: "supra-mk4"}, "Toyota Supra", true},
		{"by manufacturer and name", catalog.Item{Name: "NSX", Manufacturer: "Honda"}, "Honda NSX", true},
		{"by model member", catalog.Item{Manufacturer: "Nissan", Extra: map[string]json.RawMessage{"model": json.RawMessage(`"Skyline"`)}}, "Nissan Skyline", true},
		{"empty title ignored", catalog.Item{Name: "Blank"}, "", false},
		{"unmapped", catalog.Item{Name: "Civic", Manufacturer: "Honda"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Lookup(&tt.item)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestItemName(t *testing.T) {
	assert.Equal(t, "Miata", ItemName(&catalog.Item{Name: "Miata"}))
	assert.Equal(t, "MX-5", ItemName(&catalog.Item{Extra: map[string]json.RawMessage{"model": json.RawMessage(`"MX-5"`)}}))
	assert.Equal(t, "", ItemName(&catalog.Item{Extra: map[string]json.RawMessage{"model": json.RawMessage(`5`)}}))
	assert.Equal(t, "", ItemName(&catalog.Item{}))
}
