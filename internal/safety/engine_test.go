package safety

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/crimegrid"
	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

func TestEngineRebuildAndResolve(t *testing.T) {
	grid := geo.NewGrid(0.01)
	engine := NewEngine(grid, EngineOptions{})

	// Before any build: safe defaults everywhere.
	m := engine.ResolveSafety(51.5, 0.5)
	assert.Equal(t, 0.1, m.SafetyScore)

	var records []model.CrimeRecord
	for i := 0; i < 5; i++ {
		records = append(records, model.CrimeRecord{
			Latitude: 51.5, Longitude: 0.5, CrimeType: "Robbery",
		})
	}
	err := engine.RebuildGrid(context.Background(), crimegrid.NewSliceSource(records), crimegrid.BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, engine.Snapshot().Len())
	m = engine.ResolveSafety(51.5, 0.5)
	assert.Equal(t, 5, m.CrimeCount)
	assert.Greater(t, m.CrimeRate, 0.0)
}

func TestEngineRebuildIdempotent(t *testing.T) {
	grid := geo.NewGrid(0.01)
	engine := NewEngine(grid, EngineOptions{})

	records := []model.CrimeRecord{
		{Latitude: 51.5, Longitude: 0.5, CrimeType: "Burglary"},
		{Latitude: 51.51, Longitude: 0.5, CrimeType: "Burglary"},
	}

	require.NoError(t, engine.RebuildGrid(context.Background(), crimegrid.NewSliceSource(records), crimegrid.BuildOptions{}))
	first := engine.ResolveSafety(51.5, 0.5)

	require.NoError(t, engine.RebuildGrid(context.Background(), crimegrid.NewSliceSource(records), crimegrid.BuildOptions{}))
	assert.Equal(t, first, engine.ResolveSafety(51.5, 0.5))
}

func TestEngineFailedRebuildKeepsSnapshot(t *testing.T) {
	grid := geo.NewGrid(0.01)
	engine := NewEngine(grid, EngineOptions{})

	records := []model.CrimeRecord{{Latitude: 51.5, Longitude: 0.5, CrimeType: "Arson"}}
	require.NoError(t, engine.RebuildGrid(context.Background(), crimegrid.NewSliceSource(records), crimegrid.BuildOptions{}))
	require.Equal(t, 1, engine.Snapshot().Len())

	err := engine.RebuildGrid(context.Background(), &failingSafetySource{}, crimegrid.BuildOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, engine.Snapshot().Len(), "previous snapshot survives a failed build")
}

type failingSafetySource struct{}

func (f *failingSafetySource) Next() (model.CrimeRecord, error) {
	return model.CrimeRecord{}, assert.AnError
}

func TestEngineHazardDensityWithoutAggregator(t *testing.T) {
	engine := NewEngine(geo.NewGrid(0.01), EngineOptions{})
	assert.Equal(t, 0.1, engine.HazardDensity(context.Background(), 51.5, 0.5, 500))
}

func TestEngineLightingIndexFallsBackToGrid(t *testing.T) {
	engine := NewEngine(geo.NewGrid(0.01), EngineOptions{})

	// No lighting cache wired: the resolver's stored (default) value is used.
	got := engine.LightingIndex(context.Background(), 51.5, 0.5, 100)
	assert.Equal(t, 0.3, got)
}

func TestEngineWeightedResolve(t *testing.T) {
	grid := geo.NewGrid(0.01)
	engine := NewEngine(grid, EngineOptions{})

	records := []model.CrimeRecord{{Latitude: 51.5, Longitude: 0.5, CrimeType: "Robbery"}}
	require.NoError(t, engine.RebuildGrid(context.Background(), crimegrid.NewSliceSource(records), crimegrid.BuildOptions{}))

	m := engine.ResolveSafetyWeighted(51.5, 0.5, &model.FactorWeights{Crime: 1})
	assert.InDelta(t, m.CrimeRate, m.SafetyScore, 1e-9)
}
