// Package hazard merges community hazard reports and verified traffic
// incidents into a normalized hazard-density signal.
package hazard

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// Density constants.
const (
	// DefaultRadiusM is the default hazard query radius.
	DefaultRadiusM = 500.0

	// noHazardBaseline is returned when neither source reports anything
	// in range. Absence of reports is evidence of relative safety, not
	// certainty, so the floor is above zero.
	noHazardBaseline = 0.1

	// saturationImpact is the total weighted impact at which density
	// saturates: roughly three high-severity hazards in range.
	saturationImpact = 3.0

	// severityDefault applies to unrecognized severities. Unknown is
	// treated as high; underestimating a hazard is the expensive mistake.
	severityDefault = 2.5
)

// Verified-incident bonuses.
const (
	verifiedBonus         = 1.3
	verifiedAccidentBonus = 2.5
	trafficBonusAccident  = 1.0
	trafficBonusVerified  = 0.5
	trafficBonusCommunity = 0.3
)

// CommunityStore queries community-submitted hazard reports near a point.
type CommunityStore interface {
	QueryNear(ctx context.Context, lat, lon, radiusM float64) ([]model.HazardReport, error)
}

// TrafficProvider queries verified traffic incidents near a point.
type TrafficProvider interface {
	QueryNear(ctx context.Context, lat, lon, radiusM float64) ([]model.HazardReport, error)
}

// Options configure an Aggregator.
type Options struct {
	// SeverityWeights maps severity names to impact weights. Missing
	// entries fall back to the built-in defaults.
	SeverityWeights map[string]float64

	// QueryTimeout bounds each source query independently.
	QueryTimeout time.Duration

	// RadiusM is the query radius applied when a call passes none.
	// Non-positive means DefaultRadiusM.
	RadiusM float64
}

// Aggregator blends both hazard sources into one density score. A failing
// or slow source degrades to an empty result for that source only.
type Aggregator struct {
	community CommunityStore
	traffic   TrafficProvider
	weights   map[string]float64
	timeout   time.Duration
	radius    float64
}

// defaultSeverityWeights per the scoring calibration.
var defaultSeverityWeights = map[string]float64{
	"low":      0.5,
	"medium":   1.2,
	"high":     2.5,
	"critical": 3.0,
}

// NewAggregator returns an Aggregator over the given sources. Either source
// may be nil and is then treated as always empty.
func NewAggregator(community CommunityStore, traffic TrafficProvider, opts Options) *Aggregator {
	weights := make(map[string]float64, len(defaultSeverityWeights))
	for k, v := range defaultSeverityWeights {
		weights[k] = v
	}
	for k, v := range opts.SeverityWeights {
		weights[k] = v
	}
	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	radius := opts.RadiusM
	if radius <= 0 {
		radius = DefaultRadiusM
	}
	return &Aggregator{community: community, traffic: traffic, weights: weights, timeout: timeout, radius: radius}
}

// Density returns the hazard density near a point in [0,1]. A non-positive
// radius uses the configured default. Source failures are absorbed: the call
// never errors, it degrades.
func (a *Aggregator) Density(ctx context.Context, lat, lon, radiusM float64) float64 {
	if radiusM <= 0 {
		radiusM = a.radius
	}

	var community, verified []model.HazardReport

	// Both sources queried concurrently with independent timeouts; one
	// slow source must not stall the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		community = a.querySource(gctx, "community", lat, lon, radiusM, a.communityQuery)
		return nil
	})
	g.Go(func() error {
		verified = a.querySource(gctx, "traffic", lat, lon, radiusM, a.trafficQuery)
		return nil
	})
	_ = g.Wait()

	if len(community) == 0 && len(verified) == 0 {
		return noHazardBaseline
	}

	var total float64
	for _, r := range community {
		total += a.communityImpact(r, lat, lon, radiusM)
	}
	for _, r := range verified {
		total += a.verifiedImpact(r, lat, lon, radiusM)
	}

	return math.Min(1.0, total/saturationImpact)
}

type sourceQuery func(ctx context.Context, lat, lon, radiusM float64) ([]model.HazardReport, error)

func (a *Aggregator) communityQuery(ctx context.Context, lat, lon, radiusM float64) ([]model.HazardReport, error) {
	if a.community == nil {
		return nil, nil
	}
	return a.community.QueryNear(ctx, lat, lon, radiusM)
}

func (a *Aggregator) trafficQuery(ctx context.Context, lat, lon, radiusM float64) ([]model.HazardReport, error) {
	if a.traffic == nil {
		return nil, nil
	}
	return a.traffic.QueryNear(ctx, lat, lon, radiusM)
}

// querySource runs one source query under its own timeout, absorbing errors.
func (a *Aggregator) querySource(ctx context.Context, name string, lat, lon, radiusM float64, query sourceQuery) []model.HazardReport {
	qctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reports, err := query(qctx, lat, lon, radiusM)
	if err != nil {
		zap.L().Warn("hazard source query failed",
			zap.String("source", name),
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return nil
	}
	return reports
}

// communityImpact scores one community report: severity plus a small bonus
// for traffic-affecting reports, decayed linearly with distance.
func (a *Aggregator) communityImpact(r model.HazardReport, lat, lon, radiusM float64) float64 {
	df := distanceFactor(r, lat, lon, radiusM)
	if df <= 0 {
		return 0
	}
	bonus := 0.0
	if r.AffectsTraffic() {
		bonus = trafficBonusCommunity
	}
	return (a.severityWeight(r.Severity) + bonus) * df
}

// verifiedImpact scores one verified incident. Accidents are immediate
// dangers and carry a much larger multiplier.
func (a *Aggregator) verifiedImpact(r model.HazardReport, lat, lon, radiusM float64) float64 {
	df := distanceFactor(r, lat, lon, radiusM)
	if df <= 0 {
		return 0
	}

	bonus := verifiedBonus
	traffic := trafficBonusVerified
	if r.Type == "accident" {
		bonus = verifiedAccidentBonus
		traffic = trafficBonusAccident
	}
	return (a.severityWeight(r.Severity) + traffic) * df * bonus
}

func (a *Aggregator) severityWeight(s model.HazardSeverity) float64 {
	if w, ok := a.weights[string(s)]; ok {
		return w
	}
	return severityDefault
}

// distanceFactor decays linearly from 1 at the report location to 0 at the
// query radius.
func distanceFactor(r model.HazardReport, lat, lon, radiusM float64) float64 {
	dist := geo.DistanceMeters(lat, lon, r.Latitude, r.Longitude)
	f := 1 - dist/radiusM
	if f < 0 {
		return 0
	}
	return f
}
