package specs

import "strings"

// labelRule maps label substrings to a canonical spec name.
type labelRule struct {
	name     string
	keywords []string
}

// labelRules are tried in order; the first rule with a matching keyword wins.
var labelRules = []labelRule{
	{Engine, []string{"engine"}},
	{Power, []string{"power", "horsepower"}},
	{Displacement, []string{"displacement", "capacity"}},
	{Torque, []string{"torque"}},
	{Transmission, []string{"transmission"}},
	{Drivetrain, []string{"drive", "drivetrain"}},
	{Weight, []string{"weight"}},
	{Production, []string{"production", "model years"}},
}

// CanonicalLabel maps an infobox row label to a canonical spec name.
// Matching is a case-insensitive substring test, so "Kerb weight" maps to
// weight and "Engine capacity" maps to engine.
func CanonicalLabel(label string) (string, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return "", false
	}
	for _, r := range labelRules {
		for _, kw := range r.keywords {
			if strings.Contains(l, kw) {
				return r.name, true
			}
		}
	}
	return "", false
}

// CanonicalNames lists the recognized spec names in match order.
func CanonicalNames() []string {
	names := make([]string, len(labelRules))
	for i, r := range labelRules {
		names[i] = r.name
	}
	return names
}
