package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// scoredRoute returns a scorer whose grid holds one cell per coordinate with
// the given safety score, plus the coordinates themselves. Points are a full
// cell apart so each sample lands in its own cell.
func scoredRoute(t *testing.T, scores []float64) (*RouteScorer, []model.Coordinate) {
	t.Helper()
	grid := geo.NewGrid(0.01)

	cells := map[string]model.SafetyCell{}
	coords := make([]model.Coordinate, 0, len(scores))
	for i, score := range scores {
		lat := 51.50 + 0.01*float64(i)
		key, cell := cellAt(grid, lat, 0.50, model.SafetyMetrics{SafetyScore: score})
		cells[key] = cell
		coords = append(coords, model.Coordinate{Lat: lat, Lon: 0.50})
	}

	resolver := NewResolver(grid, seedStore(cells))
	return NewRouteScorer(resolver, DefaultSampleIntervalM), coords
}

func TestScoreBlendsAverageAndPeak(t *testing.T) {
	scorer, coords := scoredRoute(t, []float64{0.2, 0.2, 0.9})

	res := scorer.Score(coords)
	require.Len(t, res.SampledPoints, 3)
	assert.InDelta(t, 0.5733, res.CompositeScore, 0.001)
	assert.InDelta(t, 4.2667, res.Rating, 0.001)
}

func TestScoreShortRouteNeutral(t *testing.T) {
	scorer, _ := scoredRoute(t, []float64{0.9, 0.9})

	for _, coords := range [][]model.Coordinate{
		nil,
		{{Lat: 51.5, Lon: 0.5}},
		{{Lat: 51.5, Lon: 0.5}, {Lat: 51.51, Lon: 0.5}},
	} {
		res := scorer.Score(coords)
		assert.Equal(t, 0.5, res.CompositeScore)
		assert.InDelta(t, 5.0, res.Rating, 1e-9)
		assert.Empty(t, res.SampledPoints)
	}
}

func TestScoreIdempotent(t *testing.T) {
	scorer, coords := scoredRoute(t, []float64{0.3, 0.5, 0.4, 0.6})

	first := scorer.Score(coords)
	second := scorer.Score(coords)
	assert.Equal(t, first, second)
}

func TestScoreUniformRoute(t *testing.T) {
	scorer, coords := scoredRoute(t, []float64{0.4, 0.4, 0.4})

	// avg == peak == 0.4, so the blend is 0.4 regardless of the split.
	res := scorer.Score(coords)
	assert.InDelta(t, 0.4, res.CompositeScore, 1e-9)
}

func TestSamplePolylineIncludesEndpoints(t *testing.T) {
	coords := []model.Coordinate{
		{Lat: 51.500, Lon: 0.5},
		{Lat: 51.510, Lon: 0.5},
		{Lat: 51.520, Lon: 0.5},
		{Lat: 51.530, Lon: 0.5},
	}

	samples := samplePolyline(coords, 100)
	require.NotEmpty(t, samples)
	assert.Equal(t, coords[0], samples[0])
	assert.Equal(t, coords[len(coords)-1], samples[len(samples)-1])
	assert.Len(t, samples, 4, "every vertex is over the interval apart")
}

func TestSamplePolylineSkipsDenseVertices(t *testing.T) {
	// Vertices ~11 m apart: far fewer samples than vertices.
	var coords []model.Coordinate
	for i := 0; i < 100; i++ {
		coords = append(coords, model.Coordinate{Lat: 51.5 + 0.0001*float64(i), Lon: 0.5})
	}

	samples := samplePolyline(coords, 100)
	assert.Less(t, len(samples), 20)
	assert.Equal(t, coords[0], samples[0])
	assert.Equal(t, coords[len(coords)-1], samples[len(samples)-1])
}

func TestCompareFindsSaferAlternative(t *testing.T) {
	scorer, baseline := scoredRoute(t, []float64{0.8, 0.8, 0.8})

	// Candidate through the same grid but along a safer column.
	grid := geo.NewGrid(0.01)
	cells := map[string]model.SafetyCell{}
	var candidate []model.Coordinate
	for i := 0; i < 3; i++ {
		lat := 51.50 + 0.01*float64(i)
		key, cell := cellAt(grid, lat, 0.50, model.SafetyMetrics{SafetyScore: 0.8})
		cells[key] = cell
		key2, cell2 := cellAt(grid, lat, 0.60, model.SafetyMetrics{SafetyScore: 0.2})
		cells[key2] = cell2
		candidate = append(candidate, model.Coordinate{Lat: lat, Lon: 0.60})
	}
	scorer = NewRouteScorer(NewResolver(grid, seedStore(cells)), DefaultSampleIntervalM)

	cmp := scorer.Compare(baseline, [][]model.Coordinate{candidate})
	assert.True(t, cmp.SaferAlternativeFound)
	assert.Equal(t, 0, cmp.SafestIndex)
	assert.Less(t, cmp.Safest.CompositeScore, cmp.Fastest.CompositeScore)
}

func TestCompareBaselineWinsTies(t *testing.T) {
	scorer, baseline := scoredRoute(t, []float64{0.4, 0.4, 0.4})

	// Identical candidate: equal score must not displace the baseline.
	cmp := scorer.Compare(baseline, [][]model.Coordinate{baseline})
	assert.False(t, cmp.SaferAlternativeFound)
	assert.Equal(t, -1, cmp.SafestIndex)
	assert.Equal(t, cmp.Fastest, cmp.Safest)
}

func TestCompareNoCandidates(t *testing.T) {
	scorer, baseline := scoredRoute(t, []float64{0.3, 0.3, 0.3})

	cmp := scorer.Compare(baseline, nil)
	assert.False(t, cmp.SaferAlternativeFound)
	assert.Equal(t, -1, cmp.SafestIndex)
}

func TestNewRouteScorerDefaultInterval(t *testing.T) {
	grid := geo.NewGrid(0.01)
	s := NewRouteScorer(NewResolver(grid, seedStore(nil)), 0)
	assert.Equal(t, DefaultSampleIntervalM, s.intervalM)
}
