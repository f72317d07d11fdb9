package safety

import (
	"math"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// Route scoring constants.
const (
	// DefaultSampleIntervalM is the distance between route samples.
	DefaultSampleIntervalM = 100.0

	// neutralScore is used for degenerate routes too short to sample.
	neutralScore = 0.5

	// Composite blend: the worst sampled pocket carries real weight so a
	// route through one dangerous block does not average away.
	avgWeight  = 0.7
	peakWeight = 0.3
)

// RouteScorer samples route polylines and scores each sample through the
// resolver.
type RouteScorer struct {
	resolver  *Resolver
	intervalM float64
}

// NewRouteScorer returns a scorer sampling at intervalM meters.
// Non-positive intervals use DefaultSampleIntervalM.
func NewRouteScorer(resolver *Resolver, intervalM float64) *RouteScorer {
	if intervalM <= 0 {
		intervalM = DefaultSampleIntervalM
	}
	return &RouteScorer{resolver: resolver, intervalM: intervalM}
}

// Score produces the composite safety assessment of one route. Routes with
// fewer than three coordinates get a neutral score without sampling.
func (s *RouteScorer) Score(coords []model.Coordinate) model.RouteSafetyResult {
	if len(coords) <= 2 {
		return model.RouteSafetyResult{
			CompositeScore: neutralScore,
			Rating:         rating(neutralScore),
		}
	}

	samples := samplePolyline(coords, s.intervalM)

	points := make([]model.SamplePoint, 0, len(samples))
	var sum, peak float64
	for _, c := range samples {
		m := s.resolver.Resolve(c.Lat, c.Lon, nil)
		sum += m.SafetyScore
		if m.SafetyScore > peak {
			peak = m.SafetyScore
		}
		points = append(points, model.SamplePoint{Latitude: c.Lat, Longitude: c.Lon, Metrics: m})
	}

	composite := model.Clamp01(avgWeight*(sum/float64(len(samples))) + peakWeight*peak)
	return model.RouteSafetyResult{
		CompositeScore: composite,
		Rating:         rating(composite),
		SampledPoints:  points,
	}
}

// RouteComparison reports the outcome of comparing alternatives against a
// baseline route.
type RouteComparison struct {
	Fastest model.RouteSafetyResult `json:"fastest"`
	Safest  model.RouteSafetyResult `json:"safest"`

	// SafestIndex is the index into the candidates of the safest route,
	// or -1 when the baseline remains safest.
	SafestIndex int `json:"safest_index"`

	// SaferAlternativeFound is false when no candidate beat the baseline
	// and the baseline is reported as both fastest and safest.
	SaferAlternativeFound bool `json:"safer_alternative_found"`
}

// Compare scores the baseline and each candidate. A candidate wins only if
// its composite score is strictly lower than the baseline's.
func (s *RouteScorer) Compare(baseline []model.Coordinate, candidates [][]model.Coordinate) RouteComparison {
	base := s.Score(baseline)

	cmp := RouteComparison{Fastest: base, Safest: base, SafestIndex: -1}
	best := base.CompositeScore
	for i, coords := range candidates {
		res := s.Score(coords)
		if res.CompositeScore < best {
			best = res.CompositeScore
			cmp.Safest = res
			cmp.SafestIndex = i
			cmp.SaferAlternativeFound = true
		}
	}
	return cmp
}

// samplePolyline walks the polyline accumulating great-circle distance and
// emits a sample every intervalM meters. The first and last coordinates are
// always included.
func samplePolyline(coords []model.Coordinate, intervalM float64) []model.Coordinate {
	samples := []model.Coordinate{coords[0]}
	accumulated := 0.0

	for i := 1; i < len(coords); i++ {
		accumulated += geo.DistanceMeters(coords[i-1].Lat, coords[i-1].Lon, coords[i].Lat, coords[i].Lon)
		if accumulated >= intervalM {
			samples = append(samples, coords[i])
			accumulated = 0
		}
	}

	last := coords[len(coords)-1]
	if samples[len(samples)-1] != last {
		samples = append(samples, last)
	}
	return samples
}

// rating maps a composite score onto the user-facing 0–10 scale, 10 safest.
func rating(composite float64) float64 {
	r := (1 - composite) * 10
	return math.Min(10, math.Max(0, r))
}
