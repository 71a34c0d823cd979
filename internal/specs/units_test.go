package specs

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePower(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]float64
	}{
		{
			name: "hp and kW both explicit",
			text: "268 hp (200 kW)",
			want: map[string]float64{
				"power_hp": 268, "power_kw": 200,
				"power_hp_min": 268, "power_hp_max": 268, "power_hp_avg": 268,
				"power_kw_min": 200, "power_kw_max": 200, "power_kw_avg": 200,
			},
		},
		{
			name: "kW only derives hp",
			text: "100 kW",
			want: map[string]float64{
				"power_kw": 100, "power_hp": 134.1,
				"power_kw_min": 100, "power_kw_max": 100, "power_kw_avg": 100,
			},
		},
		{
			name: "PS counts as hp",
			text: "280 PS",
			want: map[string]float64{
				"power_hp": 280, "power_kw": 208.8,
				"power_hp_min": 280, "power_hp_max": 280, "power_hp_avg": 280,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePower(tt.text))
		})
	}
}

func TestParsePower_Range(t *testing.T) {
	got := ParsePower("280 PS (206 kW) to 600 PS (441 kW)")
	assert.Equal(t, 206.0, got["power_kw_min"])
	assert.Equal(t, 441.0, got["power_kw_max"])
	assert.Equal(t, 280.0, got["power_hp_min"])
	assert.Equal(t, 600.0, got["power_hp_max"])
	assert.Equal(t, 600.0, got["power_hp"])
	assert.Equal(t, 441.0, got["power_kw"])
}

func TestParseWeight(t *testing.T) {
	got := ParseWeight("1,931\u20132,055 kg")
	assert.Equal(t, 1931.0, got["weight_kg_min"])
	assert.Equal(t, 2055.0, got["weight_kg_max"])
	assert.Equal(t, 2055.0, got["weight_kg"])
	assert.Equal(t, 1993.0, got["weight_kg_avg"])
	assert.Equal(t, math.Round(2055.0*LBPerKG*10)/10, got["weight_lb"])
	assert.Equal(t, 4530.5, got["weight_lb"])
}

func TestParseWeight_NarrowNoBreakSpace(t *testing.T) {
	got := ParseWeight("1\u202F540 kg (3,395 lb)")
	assert.Equal(t, 1540.0, got["weight_kg"])
	assert.Equal(t, Round1(1540*LBPerKG), got["weight_lb"], "pounds in the text are ignored when kg is present")
}

func TestParseWeight_PoundsFallback(t *testing.T) {
	got := ParseWeight("3,000 lb (base) to 3,400 lbs")
	assert.Equal(t, 3000.0, got["weight_lb_min"])
	assert.Equal(t, 3400.0, got["weight_lb_max"])
	assert.Equal(t, 3400.0, got["weight_lb"])
	assert.Equal(t, Round1(3400/LBPerKG), got["weight_kg"])
}

func TestParseWeight_IgnoresPoundFeet(t *testing.T) {
	for _, text := range []string{"320 N⋅m (236 lb⋅ft)", "236 lb-ft", "236 lb ft", "236 ft·lbf"} {
		t.Run(text, func(t *testing.T) {
			assert.Empty(t, ParseWeight(text))
		})
	}

	got := ParseWeight("3,400 lb; 236 lb⋅ft")
	assert.Equal(t, 3400.0, got["weight_lb"])
	assert.Equal(t, 3400.0, got["weight_lb_min"])
}

func TestParseDisplacement(t *testing.T) {
	t.Run("litres preferred", func(t *testing.T) {
		got := ParseDisplacement("2,568 cc (2.6 L)")
		assert.Equal(t, map[string]float64{
			"displacement_l_min": 2.6,
			"displacement_l_max": 2.6,
			"displacement_l":     2.6,
			"displacement_cc":    2600,
		}, got)
	})
	t.Run("cc fallback", func(t *testing.T) {
		got := ParseDisplacement("1,998 cc")
		assert.Equal(t, map[string]float64{
			"displacement_cc_min": 1998,
			"displacement_cc_max": 1998,
			"displacement_cc":     1998,
			"displacement_l":      1.998,
		}, got)
	})
	t.Run("litre range", func(t *testing.T) {
		got := ParseDisplacement("1.6 L I4, 2.0 litre I4")
		assert.Equal(t, 1.6, got["displacement_l_min"])
		assert.Equal(t, 2.0, got["displacement_l"])
		assert.Equal(t, 2000.0, got["displacement_cc"])
	})
	t.Run("pounds are not litres", func(t *testing.T) {
		assert.Empty(t, ParseDisplacement("5 lb"))
	})
}

func TestParseTorque(t *testing.T) {
	t.Run("newton metres", func(t *testing.T) {
		got := ParseTorque("392 N⋅m (289 lbf⋅ft)")
		assert.Equal(t, 392.0, got["torque_nm"])
		assert.Equal(t, Round1(392*LBFTPerNM), got["torque_lbft"])
	})
	t.Run("Nm spellings", func(t *testing.T) {
		for _, text := range []string{"400 Nm", "400 N m", "400 N.m", "400 N·m", "400 N·m"} {
			assert.Equal(t, 400.0, ParseTorque(text)["torque_nm"], text)
		}
	})
	t.Run("pound feet fallback", func(t *testing.T) {
		got := ParseTorque("295 lb-ft")
		assert.Equal(t, 295.0, got["torque_lbft"])
		assert.Equal(t, Round1(295/LBFTPerNM), got["torque_nm"])
	})
}

func TestParsers_NoUnits(t *testing.T) {
	parsers := map[string]func(string) map[string]float64{
		"power":        ParsePower,
		"weight":       ParseWeight,
		"displacement": ParseDisplacement,
		"torque":       ParseTorque,
	}
	for name, parse := range parsers {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, parse(""))
			assert.Empty(t, parse("Front-engine, rear-wheel-drive"))
			assert.Empty(t, parse("1999 to 2002"))
		})
	}
}

func TestParsers_RoundTrip(t *testing.T) {
	for _, v := range []float64{55, 120.5, 200, 441, 1234.5} {
		t.Run(fmt.Sprint(v), func(t *testing.T) {
			p := ParsePower(fmt.Sprintf("%g kW", v))
			assert.InDelta(t, v*HPPerKW, p["power_hp"], 0.05)

			w := ParseWeight(fmt.Sprintf("%g kg", v))
			assert.InDelta(t, v*LBPerKG, w["weight_lb"], 0.05)

			tq := ParseTorque(fmt.Sprintf("%g Nm", v))
			assert.InDelta(t, v*LBFTPerNM, tq["torque_lbft"], 0.05)

			d := ParseDisplacement(fmt.Sprintf("%g L", v/100))
			assert.InDelta(t, v/100*CCPerL, d["displacement_cc"], 0.5)
		})
	}
}

func TestNormalize(t *testing.T) {
	b := NewBundle()
	b.SetText(Power, "268 hp (200 kW)")
	b.SetText(Weight, "1,540 kg")
	b.SetText(Transmission, "6-speed manual")

	Normalize(b)

	v, ok := b.Value("power_hp")
	require.True(t, ok)
	assert.Equal(t, 268.0, v)
	_, ok = b.Value("weight_kg")
	assert.True(t, ok)
	_, ok = b.Value("torque_nm")
	assert.False(t, ok, "absent raw field yields no derived keys")
}
