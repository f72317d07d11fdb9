// Package model defines the domain types shared across the scoring engine.
package model

import "time"

// CrimeRecord is a single validated crime incident from an ingested dataset.
// Records are immutable and discarded once folded into the grid.
type CrimeRecord struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	CrimeType string  `json:"crime_type"`
	Severity  float64 `json:"severity"` // [0,1]
	Month     string  `json:"month"`    // YYYY-MM
}

// Coordinate is a (lat, lon) pair on a route polyline.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FactorWeights blends the four safety signals into the composite score.
// Weights need not sum to 1.
type FactorWeights struct {
	Crime     float64 `json:"crime"`
	Collision float64 `json:"collision"`
	Lighting  float64 `json:"lighting"`
	Hazard    float64 `json:"hazard"`
}

// DefaultFactorWeights returns the system default blend.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{Crime: 0.4, Collision: 0.25, Lighting: 0.2, Hazard: 0.15}
}

// SafetyCell is one grid cell of the crime snapshot. Cells are owned by the
// snapshot and rebuilt wholesale, never mutated in place.
type SafetyCell struct {
	CellKey          string        `json:"cell_key"`
	CenterLat        float64       `json:"center_lat"`
	CenterLon        float64       `json:"center_lon"`
	CrimeCount       int           `json:"crime_count"`
	TotalSeverity    float64       `json:"total_severity"`
	CrimeScore       float64       `json:"crime_score"`       // [0,1]
	LightingIndex    float64       `json:"lighting_index"`    // [0,1], 0 = well lit
	CollisionDensity float64       `json:"collision_density"` // [0,1]
	HazardDensity    float64       `json:"hazard_density"`    // [0,1]
	SafetyScore      float64       `json:"safety_score"`      // [0,1], 0 = safest
	Weights          FactorWeights `json:"weights"`
}

// SafetyMetrics is the per-point result returned by the resolver.
type SafetyMetrics struct {
	CrimeRate        float64 `json:"crime_rate"`
	LightingIndex    float64 `json:"lighting_index"`
	CollisionDensity float64 `json:"collision_density"`
	HazardDensity    float64 `json:"hazard_density"`
	SafetyScore      float64 `json:"safety_score"`
	CrimeCount       int     `json:"crime_count"`
}

// HazardSeverity classifies hazard report severity.
type HazardSeverity string

// Hazard severities.
const (
	SeverityLow      HazardSeverity = "low"
	SeverityMedium   HazardSeverity = "medium"
	SeverityHigh     HazardSeverity = "high"
	SeverityCritical HazardSeverity = "critical"
)

// HazardSource distinguishes community reports from verified feeds.
type HazardSource string

// Hazard sources.
const (
	SourceCommunity HazardSource = "community"
	SourceVerified  HazardSource = "verified"
)

// HazardReport is a community report or verified traffic incident. Reports
// are read fresh per query and never cached by the engine.
type HazardReport struct {
	ID         string            `json:"id"`
	Latitude   float64           `json:"latitude"`
	Longitude  float64           `json:"longitude"`
	Type       string            `json:"type"`
	Severity   HazardSeverity    `json:"severity"`
	Source     HazardSource      `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ReportedAt time.Time         `json:"reported_at"`
	Status     string            `json:"status"`
}

// AffectsTraffic reports whether the report metadata marks it as
// traffic-affecting.
func (h HazardReport) AffectsTraffic() bool {
	return h.Metadata["affects_traffic"] == "true"
}

// LitStatus is the raw lit tag of a lighting feature.
type LitStatus string

// Lit statuses from the upstream dataset.
const (
	LitYes       LitStatus = "yes"
	LitNo        LitStatus = "no"
	LitAutomatic LitStatus = "automatic"
	LitLimited   LitStatus = "limited"
	LitUnknown   LitStatus = "unknown"
)

// LightingFeature is a street-lighting feature cached per grid cell.
// Entries expire after the cache TTL and are superseded on refresh.
type LightingFeature struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	LitStatus      LitStatus `json:"lit_status"`
	LightSource    string    `json:"light_source"`
	CoverageRadius float64   `json:"coverage_radius_m"`
	LightingScore  float64   `json:"lighting_score"` // [0,1], 0 = well lit
	CachedAt       time.Time `json:"cached_at"`
}

// SamplePoint is one sampled route coordinate with its resolved metrics.
type SamplePoint struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Metrics   SafetyMetrics `json:"metrics"`
}

// RouteSafetyResult is the composite safety assessment of one route.
type RouteSafetyResult struct {
	CompositeScore float64       `json:"composite_score"` // [0,1], 0 = safest
	Rating         float64       `json:"rating"`          // [0,10], 10 = safest
	SampledPoints  []SamplePoint `json:"sampled_points"`
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
