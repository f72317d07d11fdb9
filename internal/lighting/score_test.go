package lighting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/saferoute/internal/model"
)

func TestDeriveFeatureScores(t *testing.T) {
	tests := []struct {
		name      string
		tags      map[string]string
		wantLit   model.LitStatus
		wantScore float64
	}{
		{"lit yes", map[string]string{"lit": "yes"}, model.LitYes, 0.1},
		{"lit 24/7", map[string]string{"lit": "24/7"}, model.LitYes, 0.1},
		{"lit no", map[string]string{"lit": "no"}, model.LitNo, 0.8},
		{"automatic", map[string]string{"lit": "automatic"}, model.LitAutomatic, 0.15},
		{"dusk-dawn", map[string]string{"lit": "dusk-dawn"}, model.LitAutomatic, 0.15},
		{"limited", map[string]string{"lit": "limited"}, model.LitLimited, 0.5},
		{"no lit tag", map[string]string{}, model.LitUnknown, 0.5},
		{"garbage lit tag", map[string]string{"lit": "whenever"}, model.LitUnknown, 0.5},
		{"led discount", map[string]string{"lit": "yes", "light_source": "LED"}, model.LitYes, 0.09},
		{"gas penalty", map[string]string{"lit": "yes", "light_source": "gas"}, model.LitYes, 0.12},
		{"lamp_type fallback", map[string]string{"lit": "yes", "lamp_type": "led"}, model.LitYes, 0.09},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DeriveFeature(RawFeature{ID: "node/1", Latitude: 51.5, Longitude: 0.5, Tags: tt.tags}, "overpass", time.Now())
			assert.Equal(t, tt.wantLit, f.LitStatus)
			assert.InDelta(t, tt.wantScore, f.LightingScore, 1e-9)
			assert.Equal(t, "overpass", f.Source)
		})
	}
}

func TestDeriveFeatureCoverageRadius(t *testing.T) {
	tests := []struct {
		name        string
		lightSource string
		want        float64
	}{
		{"led", "led", 40},
		{"gas", "gas_lantern", 15},
		{"lamp post", "lamp_post", 25},
		{"generic lamp", "street_lamp", 30},
		{"unknown", "", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DeriveFeature(RawFeature{
				ID: "node/1", Latitude: 51.5, Longitude: 0.5,
				Tags: map[string]string{"lit": "yes", "light_source": tt.lightSource},
			}, "overpass", time.Now())
			assert.Equal(t, tt.want, f.CoverageRadius)
		})
	}
}

func TestDeriveFeatureScoreClamped(t *testing.T) {
	// Gas multiplier on an unlit lamp would exceed the nominal score; the
	// result must stay in [0,1].
	f := DeriveFeature(RawFeature{
		ID: "node/2", Latitude: 51.5, Longitude: 0.5,
		Tags: map[string]string{"lit": "no", "light_source": "gas"},
	}, "overpass", time.Now())
	assert.InDelta(t, 0.96, f.LightingScore, 1e-9)
	assert.LessOrEqual(t, f.LightingScore, 1.0)
}
