package fallback

import (
	"github.com/ironsheep/label-compliance/internal/extract"
	"github.com/ironsheep/label-compliance/internal/rules"
)

// Notice is attached to every synthetic result.
const Notice = "text recognition engine unavailable; result is synthetic and not derived from the input"

// Fields returns one undetected field per rule, in rule order. The output
// depends only on the rules.
func Fields(fieldRules []rules.FieldRule) []extract.DetectedField {
	out := make([]extract.DetectedField, len(fieldRules))
	for i, r := range fieldRules {
		out[i] = extract.DetectedField{Name: r.Name, Icon: r.Icon}
	}
	return out
}
