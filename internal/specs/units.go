package specs

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Conversion constants between unit systems.
const (
	HPPerKW   = 1.34102
	LBPerKG   = 2.20462
	LBFTPerNM = 0.737562
	CCPerL    = 1000.0
)

const (
	number = `([0-9][0-9,.\x{202F}]*)`
	gap    = `[\s\x{00A0}\x{202F}]*`
)

var (
	kwRe      = regexp.MustCompile(`(?i)` + number + gap + `kW`)
	hpRe      = regexp.MustCompile(`(?i)` + number + gap + `(?:b?hp|PS)`)
	kgRangeRe = regexp.MustCompile(`(?i)` + number + gap + `[–-]` + gap + number + gap + `kg`)
	kgRe      = regexp.MustCompile(`(?i)` + number + gap + `kg`)
	lbRe      = regexp.MustCompile(`(?i)` + number + gap + `lbs?\b`)
	litreRe   = regexp.MustCompile(`(?i)` + number + gap + `(?:litres?|liters?|L)\b`)
	ccRe      = regexp.MustCompile(`(?i)` + number + gap + `(?:cc|cm3|cm³)`)
	nmRe      = regexp.MustCompile(`(?i)` + number + gap + `(?:N\.?[\s\x{00A0}]?m|N[·⋅]m)`)
	lbftRe    = regexp.MustCompile(`(?i)` + number + gap + `(?:lbf?[-·⋅\s\x{00A0}]?ft|ft[-·⋅\s\x{00A0}]?lbf?)`)
)

// ParsePower extracts kW and hp figures. When both systems appear the hp
// and kW values are taken from the text as written; otherwise the missing
// system is derived from the one present.
func ParsePower(text string) map[string]float64 {
	out := map[string]float64{}
	if text == "" {
		return out
	}

	kws := findNumbers(kwRe, text)
	hps := findNumbers(hpRe, text)

	if len(kws) > 0 {
		putStats(out, "power_kw", kws, Round1)
	}
	if len(hps) > 0 {
		putStats(out, "power_hp", hps, Round1)
	}

	switch {
	case len(hps) > 0 && len(kws) > 0:
		out["power_hp"] = out["power_hp_max"]
		out["power_kw"] = out["power_kw_max"]
	case len(hps) > 0:
		out["power_hp"] = out["power_hp_max"]
		out["power_kw"] = Round1(out["power_hp"] / HPPerKW)
	case len(kws) > 0:
		out["power_kw"] = out["power_kw_max"]
		out["power_hp"] = Round1(out["power_kw"] * HPPerKW)
	}
	return out
}

// ParseWeight extracts kilogram figures, including ranges such as
// "1,931–2,055 kg". Pounds are parsed only when no kilogram figure exists,
// and pound-feet torque figures never count as pounds. The representative
// weight is the maximum.
func ParseWeight(text string) map[string]float64 {
	out := map[string]float64{}
	if text == "" {
		return out
	}

	var kgs []float64
	for _, m := range kgRangeRe.FindAllStringSubmatch(text, -1) {
		if a, ok := toNumber(m[1]); ok {
			kgs = append(kgs, a)
		}
		if b, ok := toNumber(m[2]); ok {
			kgs = append(kgs, b)
		}
	}
	kgs = unique(append(kgs, findNumbers(kgRe, text)...))

	if len(kgs) > 0 {
		putStats(out, "weight_kg", kgs, Round1)
		out["weight_lb_min"] = Round1(out["weight_kg_min"] * LBPerKG)
		out["weight_lb_max"] = Round1(out["weight_kg_max"] * LBPerKG)
		out["weight_lb_avg"] = Round1(out["weight_kg_avg"] * LBPerKG)
		out["weight_kg"] = out["weight_kg_max"]
		out["weight_lb"] = out["weight_lb_max"]
		return out
	}

	lbs := findNumbers(lbRe, lbftRe.ReplaceAllString(text, ""))
	if len(lbs) == 0 {
		return out
	}
	putStats(out, "weight_lb", lbs, Round1)
	out["weight_kg_min"] = Round1(out["weight_lb_min"] / LBPerKG)
	out["weight_kg_max"] = Round1(out["weight_lb_max"] / LBPerKG)
	out["weight_kg_avg"] = Round1(out["weight_lb_avg"] / LBPerKG)
	out["weight_kg"] = out["weight_kg_max"]
	out["weight_lb"] = out["weight_lb_max"]
	return out
}

// ParseDisplacement extracts litre figures, falling back to cubic
// centimetres. Litres round to 3 decimals and cc to whole numbers.
func ParseDisplacement(text string) map[string]float64 {
	out := map[string]float64{}
	if text == "" {
		return out
	}

	if ls := findNumbers(litreRe, text); len(ls) > 0 {
		lo, hi := minMax(ls)
		out["displacement_l_min"] = Round3(lo)
		out["displacement_l_max"] = Round3(hi)
		out["displacement_l"] = Round3(hi)
		out["displacement_cc"] = math.Round(out["displacement_l"] * CCPerL)
		return out
	}

	if ccs := findNumbers(ccRe, text); len(ccs) > 0 {
		lo, hi := minMax(ccs)
		out["displacement_cc_min"] = math.Round(lo)
		out["displacement_cc_max"] = math.Round(hi)
		out["displacement_cc"] = math.Round(hi)
		out["displacement_l"] = Round3(out["displacement_cc"] / CCPerL)
	}
	return out
}

// ParseTorque extracts newton-metre figures, falling back to pound-feet.
func ParseTorque(text string) map[string]float64 {
	out := map[string]float64{}
	if text == "" {
		return out
	}

	if nms := findNumbers(nmRe, text); len(nms) > 0 {
		lo, hi := minMax(nms)
		out["torque_nm_min"] = Round1(lo)
		out["torque_nm_max"] = Round1(hi)
		out["torque_nm"] = Round1(hi)
		out["torque_lbft_min"] = Round1(out["torque_nm_min"] * LBFTPerNM)
		out["torque_lbft_max"] = Round1(out["torque_nm_max"] * LBFTPerNM)
		out["torque_lbft"] = Round1(out["torque_nm"] * LBFTPerNM)
		return out
	}

	if lbfts := findNumbers(lbftRe, text); len(lbfts) > 0 {
		lo, hi := minMax(lbfts)
		out["torque_lbft_min"] = Round1(lo)
		out["torque_lbft_max"] = Round1(hi)
		out["torque_lbft"] = Round1(hi)
		out["torque_nm_min"] = Round1(out["torque_lbft_min"] / LBFTPerNM)
		out["torque_nm_max"] = Round1(out["torque_lbft_max"] / LBFTPerNM)
		out["torque_nm"] = Round1(out["torque_lbft"] / LBFTPerNM)
	}
	return out
}

// Normalize runs every parser over the matching raw field of b and merges
// the derived values into b.
func Normalize(b *Bundle) {
	if b == nil {
		return
	}
	parsers := []struct {
		name  string
		parse func(string) map[string]float64
	}{
		{Power, ParsePower},
		{Weight, ParseWeight},
		{Displacement, ParseDisplacement},
		{Torque, ParseTorque},
	}
	for _, p := range parsers {
		if raw, ok := b.Text(p.name); ok {
			b.Merge(p.parse(raw))
		}
	}
}

func findNumbers(re *regexp.Regexp, text string) []float64 {
	var out []float64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v, ok := toNumber(m[1]); ok {
			out = append(out, v)
		}
	}
	return out
}

// toNumber strips thousands separators and trailing punctuation.
func toNumber(s string) (float64, bool) {
	s = strings.NewReplacer(",", "", "\u202F", "").Replace(s)
	s = strings.TrimRight(s, ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func putStats(out map[string]float64, prefix string, vals []float64, round func(float64) float64) {
	lo, hi := minMax(vals)
	out[prefix+"_min"] = round(lo)
	out[prefix+"_max"] = round(hi)
	out[prefix+"_avg"] = round(mean(vals))
}

func minMax(vals []float64) (float64, float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func unique(vals []float64) []float64 {
	seen := make(map[float64]struct{}, len(vals))
	out := vals[:0:0]
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Round1 rounds to one decimal place, the precision of power, weight and torque.
func Round1(v float64) float64 { return math.Round(v*10) / 10 }

// Round3 rounds to three decimal places, the precision of litres.
func Round3(v float64) float64 { return math.Round(v*1000) / 1000 }
