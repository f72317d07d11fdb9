package lighting

import (
	"strings"
	"time"

	"github.com/sells-group/saferoute/internal/model"
)

// RawFeature is a lighting feature as returned by a dataset provider,
// before score derivation.
type RawFeature struct {
	ID        string            `json:"id"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Tags      map[string]string `json:"tags"`
}

// Lighting score constants derived from upstream lit-status tags.
// Lower is better lit.
const (
	scoreLitYes       = 0.1
	scoreLitAutomatic = 0.15
	scoreLitLimited   = 0.5
	scoreLitNo        = 0.8
	scoreLitUnknown   = 0.5
)

// Coverage radii in meters by lamp type.
const (
	radiusLED      = 40.0
	radiusStandard = 30.0
	radiusLampPost = 25.0
	radiusGas      = 15.0
	radiusDefault  = 30.0
)

// DeriveFeature converts a raw provider feature into a cached LightingFeature,
// deriving the lighting score from lit-status and light-source tags and the
// coverage radius from the lamp type.
func DeriveFeature(raw RawFeature, source string, now time.Time) model.LightingFeature {
	lit := litStatus(raw.Tags)
	lightSource := strings.ToLower(raw.Tags["light_source"])
	if lightSource == "" {
		lightSource = strings.ToLower(raw.Tags["lamp_type"])
	}

	var score float64
	switch lit {
	case model.LitYes:
		score = scoreLitYes
	case model.LitAutomatic:
		score = scoreLitAutomatic
	case model.LitLimited:
		score = scoreLitLimited
	case model.LitNo:
		score = scoreLitNo
	default:
		score = scoreLitUnknown
	}

	// Light source adjustments: LED is brighter than its rating, gas dimmer.
	switch {
	case strings.Contains(lightSource, "led"):
		score *= 0.9
	case strings.Contains(lightSource, "gas"):
		score *= 1.2
	}

	return model.LightingFeature{
		ID:             raw.ID,
		Source:         source,
		Latitude:       raw.Latitude,
		Longitude:      raw.Longitude,
		LitStatus:      lit,
		LightSource:    lightSource,
		CoverageRadius: coverageRadius(lightSource),
		LightingScore:  model.Clamp01(score),
		CachedAt:       now,
	}
}

// litStatus normalizes the lit tag.
func litStatus(tags map[string]string) model.LitStatus {
	switch strings.ToLower(tags["lit"]) {
	case "yes", "24/7":
		return model.LitYes
	case "no":
		return model.LitNo
	case "automatic", "interval", "dusk-dawn", "sunset-sunrise":
		return model.LitAutomatic
	case "limited", "disused":
		return model.LitLimited
	default:
		return model.LitUnknown
	}
}

// coverageRadius estimates the lit radius from the lamp type.
func coverageRadius(lightSource string) float64 {
	switch {
	case strings.Contains(lightSource, "led"):
		return radiusLED
	case strings.Contains(lightSource, "gas"):
		return radiusGas
	case strings.Contains(lightSource, "lamp_post"), strings.Contains(lightSource, "lamppost"):
		return radiusLampPost
	case strings.Contains(lightSource, "lamp"):
		return radiusStandard
	default:
		return radiusDefault
	}
}
