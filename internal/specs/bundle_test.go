package specs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleJSON_Flat(t *testing.T) {
	b := NewBundle()
	b.SetText(Engine, "2.6 L RB26DETT twin-turbo I6")
	b.SetValue("power_hp", 276)
	b.SetUnresolved("P2109", Quantity{Amount: 206, UnitLabel: "furlong", RawUnit: "http://www.wikidata.org/entity/Q1"})

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"engine": "2.6 L RB26DETT twin-turbo I6",
		"power_hp": 276,
		"wikidata_P2109": {"amount": 206, "unit_label": "furlong", "raw_unit": "http://www.wikidata.org/entity/Q1"}
	}`, string(data))

	var back Bundle
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b.Raw, back.Raw)
	assert.Equal(t, b.Values, back.Values)
	assert.Equal(t, b.Unresolved, back.Unresolved)
	assert.Equal(t, 3, back.Len())
}

func TestBundleJSON_PreservesUnknownMembers(t *testing.T) {
	in := `{"engine":"V8","doors":[2,4],"turbo":true,"power_hp":400}`
	var b Bundle
	require.NoError(t, json.Unmarshal([]byte(in), &b))
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, 1, b.RawLen())

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestBundleJSON_Null(t *testing.T) {
	var b Bundle
	require.NoError(t, json.Unmarshal([]byte(`null`), &b))
	assert.Equal(t, 0, b.Len())
}

func TestBundle_NilSafe(t *testing.T) {
	var b *Bundle
	assert.Equal(t, 0, b.Len())
	_, ok := b.Value("power_hp")
	assert.False(t, ok)
	assert.Nil(t, b.Keys())
}

func TestBundle_SetTextSkipsBlank(t *testing.T) {
	b := NewBundle()
	b.SetText(Engine, "   ")
	assert.Equal(t, 0, b.Len())
}

func TestCanonicalLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{"Engine", Engine, true},
		{"Engine capacity", Engine, true},
		{"Power output", Power, true},
		{"Horsepower", Power, true},
		{"Displacement", Displacement, true},
		{"Torque", Torque, true},
		{"Transmission", Transmission, true},
		{"Drivetrain", Drivetrain, true},
		{"Layout / drive", Drivetrain, true},
		{"Kerb weight", Weight, true},
		{"Curb weight", Weight, true},
		{"Production", Production, true},
		{"Model years", Production, true},
		{"Designer", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := CanonicalLabel(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalNames_Order(t *testing.T) {
	assert.Equal(t, []string{
		Engine, Power, Displacement, Torque, Transmission, Drivetrain, Weight, Production,
	}, CanonicalNames())
}
