// Package safety resolves per-point safety metrics from the crime grid and
// scores route polylines.
package safety

import (
	"github.com/sells-group/saferoute/internal/crimegrid"
	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// defaultMetrics is returned when neither the cell nor any neighbor holds
// data. Absence of data defaults to "safe" — an explicit design decision.
var defaultMetrics = model.SafetyMetrics{
	CrimeRate:        0.1,
	LightingIndex:    0.3,
	CollisionDensity: 0.2,
	HazardDensity:    0.2,
	SafetyScore:      0.1,
	CrimeCount:       0,
}

// Resolver answers point queries against the current grid snapshot. It is a
// pure read: the same snapshot and coordinates always produce the same
// metrics.
type Resolver struct {
	grid  *geo.Grid
	store *crimegrid.Store
}

// NewResolver returns a Resolver over the given grid index and snapshot store.
func NewResolver(grid *geo.Grid, store *crimegrid.Store) *Resolver {
	return &Resolver{grid: grid, store: store}
}

// Resolve returns the safety metrics for a point. Lookup order: exact cell,
// then the 8-neighbor ring averaged, then the safe default. If weights is
// non-nil the composite score is recomputed against it; the stored
// per-signal values are untouched.
func (r *Resolver) Resolve(lat, lon float64, weights *model.FactorWeights) model.SafetyMetrics {
	snap := r.store.Load()

	if cell, ok := snap.Cell(r.grid.CellKey(lat, lon)); ok {
		return cellMetrics(cell, weights)
	}

	// Neighbor fallback: average whatever cells exist in the ring.
	if m, ok := neighborAverage(snap, r.grid.NeighborKeys(lat, lon, 1), weights); ok {
		return m
	}

	return defaultMetrics
}

// cellMetrics converts a stored cell into resolver output, optionally
// reblending the composite with caller-supplied weights.
func cellMetrics(cell model.SafetyCell, weights *model.FactorWeights) model.SafetyMetrics {
	score := cell.SafetyScore
	if weights != nil {
		score = crimegrid.CompositeScore(cell.CrimeScore, cell.CollisionDensity, cell.LightingIndex, cell.HazardDensity, *weights)
	}
	return model.SafetyMetrics{
		CrimeRate:        cell.CrimeScore,
		LightingIndex:    cell.LightingIndex,
		CollisionDensity: cell.CollisionDensity,
		HazardDensity:    cell.HazardDensity,
		SafetyScore:      score,
		CrimeCount:       cell.CrimeCount,
	}
}

// neighborAverage averages the metrics of the populated cells among keys.
// ok is false when no neighbor holds data.
func neighborAverage(snap *crimegrid.Snapshot, keys []string, weights *model.FactorWeights) (model.SafetyMetrics, bool) {
	var sum model.SafetyMetrics
	n := 0
	for _, key := range keys {
		cell, ok := snap.Cell(key)
		if !ok {
			continue
		}
		m := cellMetrics(cell, weights)
		sum.CrimeRate += m.CrimeRate
		sum.LightingIndex += m.LightingIndex
		sum.CollisionDensity += m.CollisionDensity
		sum.HazardDensity += m.HazardDensity
		sum.SafetyScore += m.SafetyScore
		n++
	}
	if n == 0 {
		return model.SafetyMetrics{}, false
	}

	f := float64(n)
	return model.SafetyMetrics{
		CrimeRate:        sum.CrimeRate / f,
		LightingIndex:    sum.LightingIndex / f,
		CollisionDensity: sum.CollisionDensity / f,
		HazardDensity:    sum.HazardDensity / f,
		SafetyScore:      sum.SafetyScore / f,
		CrimeCount:       0,
	}, true
}
