package safety

import (
	"context"

	"github.com/sells-group/saferoute/internal/crimegrid"
	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/hazard"
	"github.com/sells-group/saferoute/internal/lighting"
	"github.com/sells-group/saferoute/internal/model"
)

// Engine is the scoring facade: it owns the grid snapshot lifecycle and
// fans point and route queries out to the resolver, the lighting cache and
// the hazard aggregator.
type Engine struct {
	grid     *geo.Grid
	builder  *crimegrid.Builder
	store    *crimegrid.Store
	resolver *Resolver
	scorer   *RouteScorer
	lighting *lighting.Cache
	hazards  *hazard.Aggregator
}

// EngineOptions configure an Engine.
type EngineOptions struct {
	SampleIntervalM float64
	Lighting        *lighting.Cache     // nil disables live lighting queries
	Hazards         *hazard.Aggregator  // nil disables live hazard queries
}

// NewEngine wires the engine over a grid index.
func NewEngine(grid *geo.Grid, opts EngineOptions) *Engine {
	store := crimegrid.NewStore()
	resolver := NewResolver(grid, store)
	return &Engine{
		grid:     grid,
		builder:  crimegrid.NewBuilder(grid),
		store:    store,
		resolver: resolver,
		scorer:   NewRouteScorer(resolver, opts.SampleIntervalM),
		lighting: opts.Lighting,
		hazards:  opts.Hazards,
	}
}

// RebuildGrid consumes the record source to completion and atomically swaps
// in the new snapshot. Idempotent for identical input. Readers keep the
// previous snapshot until the swap.
func (e *Engine) RebuildGrid(ctx context.Context, src crimegrid.Source, opts crimegrid.BuildOptions) error {
	snap, err := e.builder.Build(ctx, src, opts)
	if err != nil {
		return err
	}
	e.store.Swap(snap)
	return nil
}

// Snapshot returns the current grid snapshot.
func (e *Engine) Snapshot() *crimegrid.Snapshot {
	return e.store.Load()
}

// ResolveSafety returns the stored safety metrics for a point, with
// neighbor-cell and safe-default fallbacks.
func (e *Engine) ResolveSafety(lat, lon float64) model.SafetyMetrics {
	return e.resolver.Resolve(lat, lon, nil)
}

// ResolveSafetyWeighted is ResolveSafety with a caller-supplied blend.
func (e *Engine) ResolveSafetyWeighted(lat, lon float64, weights *model.FactorWeights) model.SafetyMetrics {
	return e.resolver.Resolve(lat, lon, weights)
}

// ScoreRoute samples the polyline and produces the composite route score.
func (e *Engine) ScoreRoute(coords []model.Coordinate) model.RouteSafetyResult {
	return e.scorer.Score(coords)
}

// CompareRoutes scores a baseline against alternatives per ScoreRoute and
// reports whether any alternative is strictly safer.
func (e *Engine) CompareRoutes(baseline []model.Coordinate, candidates [][]model.Coordinate) RouteComparison {
	return e.scorer.Compare(baseline, candidates)
}

// HazardDensity returns the live hazard density near a point, or the
// no-data baseline when no aggregator is wired.
func (e *Engine) HazardDensity(ctx context.Context, lat, lon, radiusM float64) float64 {
	if e.hazards == nil {
		return 0.1
	}
	return e.hazards.Density(ctx, lat, lon, radiusM)
}

// LightingIndex returns the live lighting index for a point, or the grid's
// stored estimate when no cache is wired.
func (e *Engine) LightingIndex(ctx context.Context, lat, lon, radiusM float64) float64 {
	if e.lighting == nil {
		return e.resolver.Resolve(lat, lon, nil).LightingIndex
	}
	return e.lighting.Index(ctx, lat, lon, radiusM)
}
