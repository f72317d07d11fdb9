package crimegrid

import "strings"

// defaultSeverity is the unknown-crime-type severity.
const defaultSeverity = 0.5

// defaultSeverityWeights maps canonical crime types to severity in [0,1].
// Types are matched case-insensitively.
var defaultSeverityWeights = map[string]float64{
	"homicide":              1.0,
	"assault":               0.9,
	"robbery":               0.9,
	"sexual offence":        0.95,
	"weapons":               0.85,
	"burglary":              0.6,
	"theft from the person": 0.7,
	"vehicle crime":         0.4,
	"bicycle theft":         0.35,
	"shoplifting":           0.2,
	"criminal damage":       0.45,
	"arson":                 0.65,
	"drugs":                 0.5,
	"public order":          0.55,
	"anti-social behaviour": 0.4,
	"other theft":           0.35,
}

// severityFor returns the severity weight for a crime type, preferring the
// override map when supplied.
func severityFor(crimeType string, override map[string]float64) float64 {
	key := strings.ToLower(strings.TrimSpace(crimeType))
	if override != nil {
		if w, ok := override[key]; ok {
			return w
		}
	}
	if w, ok := defaultSeverityWeights[key]; ok {
		return w
	}
	return defaultSeverity
}
