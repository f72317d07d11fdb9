// Package crimegrid builds the percentile-normalized crime safety grid.
package crimegrid

import (
	"context"
	"io"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// Source yields validated crime records one at a time. Next returns io.EOF
// when the sequence is exhausted.
type Source interface {
	Next() (model.CrimeRecord, error)
}

// SliceSource adapts an in-memory record slice to Source.
type SliceSource struct {
	records []model.CrimeRecord
	pos     int
}

// NewSliceSource wraps records in a Source.
func NewSliceSource(records []model.CrimeRecord) *SliceSource {
	return &SliceSource{records: records}
}

// Next implements Source.
func (s *SliceSource) Next() (model.CrimeRecord, error) {
	if s.pos >= len(s.records) {
		return model.CrimeRecord{}, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// BuildOptions customize a grid build.
type BuildOptions struct {
	// SeverityOverride maps crime types to severity weights, replacing the
	// default map for matching types. Keys are case-insensitive.
	SeverityOverride map[string]float64

	// Weights overrides the default factor weights. Nil uses defaults.
	Weights *model.FactorWeights
}

// Builder accumulates crime records into per-cell aggregates and normalizes
// them into an immutable snapshot.
type Builder struct {
	grid *geo.Grid
}

// NewBuilder returns a Builder over the given grid index.
func NewBuilder(grid *geo.Grid) *Builder {
	return &Builder{grid: grid}
}

// cellAgg is the per-cell accumulator before normalization.
type cellAgg struct {
	lat, lon      float64
	count         int
	totalSeverity float64
}

// Build consumes the source to completion and returns a new snapshot.
// The build is batch and all-or-nothing: a source read error aborts it and
// the previous snapshot stays in effect.
func (b *Builder) Build(ctx context.Context, src Source, opts BuildOptions) (*Snapshot, error) {
	log := zap.L().With(zap.String("component", "crimegrid"))
	start := time.Now()

	override := normalizeOverride(opts.SeverityOverride)
	weights := model.DefaultFactorWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	// Bucket records by cell.
	aggs := map[string]*cellAgg{}
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "crimegrid: build canceled")
		}
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "crimegrid: read record")
		}

		key := b.grid.CellKey(rec.Latitude, rec.Longitude)
		agg, ok := aggs[key]
		if !ok {
			clat, clon := b.grid.CellCenter(rec.Latitude, rec.Longitude)
			agg = &cellAgg{lat: clat, lon: clon}
			aggs[key] = agg
		}
		agg.count++
		agg.totalSeverity += severityFor(rec.CrimeType, override)
		total++
	}

	// Percentile breakpoints over the count distribution.
	counts := make([]int, 0, len(aggs))
	for _, a := range aggs {
		counts = append(counts, a.count)
	}
	bp, haveDistribution := computeBreakpoints(counts)

	// Study-area center for the lighting placeholder heuristic.
	centerLat, centerLon, maxDist := studyAreaExtent(aggs)

	cells := make(map[string]model.SafetyCell, len(aggs))
	for key, agg := range aggs {
		cell := model.SafetyCell{
			CellKey:       key,
			CenterLat:     agg.lat,
			CenterLon:     agg.lon,
			CrimeCount:    agg.count,
			TotalSeverity: agg.totalSeverity,
			Weights:       weights,
		}

		if haveDistribution {
			rate := crimeRate(float64(agg.count), bp)
			avgSeverity := agg.totalSeverity / float64(agg.count)
			multiplier := 0.7 + avgSeverity*0.6 // range 0.7–1.3
			cell.CrimeScore = math.Min(1, rate*multiplier)
		} else {
			// Empty distribution: neutral score, no percentile binning.
			cell.CrimeScore = 0.5
		}

		cell.LightingIndex = placeholderLighting(agg.lat, agg.lon, centerLat, centerLon, maxDist)
		cell.CollisionDensity = placeholderCollision(cell.CrimeScore)
		cell.HazardDensity = placeholderHazard(cell.CrimeScore)
		cell.SafetyScore = CompositeScore(cell.CrimeScore, cell.CollisionDensity, cell.LightingIndex, cell.HazardDensity, weights)

		cells[key] = cell
	}

	log.Info("grid build complete",
		zap.Int("records", total),
		zap.Int("cells", len(cells)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Snapshot{cells: cells, weights: weights, builtAt: time.Now()}, nil
}

// CompositeScore blends the four signals with the given weights, clamped
// to [0,1].
func CompositeScore(crime, collision, lighting, hazard float64, w model.FactorWeights) float64 {
	return model.Clamp01(crime*w.Crime + collision*w.Collision + lighting*w.Lighting + hazard*w.Hazard)
}

// placeholderLighting estimates a lighting index from distance to the study
// area center: better lit toward the center, capped at 0.5 for the fringe.
// Used only until the lighting cache supplies a real value for the cell.
func placeholderLighting(lat, lon, centerLat, centerLon, maxDist float64) float64 {
	if maxDist <= 0 {
		return 0.1
	}
	d := geo.DistanceMeters(lat, lon, centerLat, centerLon) / maxDist
	return math.Min(0.5, 0.1+0.4*d)
}

// Placeholder collision/hazard densities are deterministic transforms of the
// crime score so identical inputs rebuild to identical grids. They are
// overridden by live signals at resolve time.
func placeholderCollision(crimeScore float64) float64 {
	return model.Clamp01(crimeScore * 0.6)
}

func placeholderHazard(crimeScore float64) float64 {
	return model.Clamp01(crimeScore * 0.4)
}

// studyAreaExtent returns the centroid of all cell centers and the largest
// center-to-centroid distance in meters.
func studyAreaExtent(aggs map[string]*cellAgg) (lat, lon, maxDist float64) {
	if len(aggs) == 0 {
		return 0, 0, 0
	}
	for _, a := range aggs {
		lat += a.lat
		lon += a.lon
	}
	lat /= float64(len(aggs))
	lon /= float64(len(aggs))

	for _, a := range aggs {
		if d := geo.DistanceMeters(a.lat, a.lon, lat, lon); d > maxDist {
			maxDist = d
		}
	}
	return lat, lon, maxDist
}

// normalizeOverride lowercases override keys so lookups are case-insensitive.
func normalizeOverride(override map[string]float64) map[string]float64 {
	if override == nil {
		return nil
	}
	out := make(map[string]float64, len(override))
	for k, v := range override {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
