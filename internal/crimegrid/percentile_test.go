package crimegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBreakpoints(t *testing.T) {
	bp, ok := computeBreakpoints([]int{1, 1, 1, 2, 2, 3, 5, 8, 13, 21})
	require.True(t, ok)

	assert.Equal(t, 1.0, bp.P25)
	assert.Equal(t, 2.0, bp.P50)
	assert.Equal(t, 5.0, bp.P75)
	assert.Equal(t, 13.0, bp.P90)
	assert.Equal(t, 13.0, bp.P95)
}

func TestComputeBreakpointsEmpty(t *testing.T) {
	_, ok := computeBreakpoints(nil)
	assert.False(t, ok)
}

func TestComputeBreakpointsSingleCell(t *testing.T) {
	bp, ok := computeBreakpoints([]int{7})
	require.True(t, ok)

	// Every percentile collapses onto the only count.
	assert.Equal(t, 7.0, bp.P25)
	assert.Equal(t, 7.0, bp.P95)
}

func TestComputeBreakpointsDoesNotMutateInput(t *testing.T) {
	counts := []int{5, 1, 3}
	_, ok := computeBreakpoints(counts)
	require.True(t, ok)
	assert.Equal(t, []int{5, 1, 3}, counts)
}

func TestCrimeRate(t *testing.T) {
	bp := Breakpoints{P25: 1, P50: 2, P75: 5, P90: 13, P95: 21}

	tests := []struct {
		name  string
		count float64
		want  float64
	}{
		{"zero count", 0, 0},
		{"at p25", 1, 0.2},
		{"at p50", 2, 0.4},
		{"midway p50 to p75", 3.5, 0.5},
		{"at p75", 5, 0.6},
		{"at p90", 13, 0.8},
		{"at p95 saturates", 21, 1.0},
		{"above p95 saturates", 100, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, crimeRate(tt.count, bp), 1e-9)
		})
	}
}

func TestCrimeRateMonotonic(t *testing.T) {
	bp := Breakpoints{P25: 1, P50: 2, P75: 5, P90: 13, P95: 21}

	prev := -1.0
	for count := 0.0; count <= 25; count += 0.5 {
		rate := crimeRate(count, bp)
		assert.GreaterOrEqual(t, rate, prev, "rate decreased at count %v", count)
		prev = rate
	}
}

func TestCrimeRateDegenerateSpan(t *testing.T) {
	// All percentiles equal: anything above saturates, nothing panics.
	bp := Breakpoints{P25: 3, P50: 3, P75: 3, P90: 3, P95: 3}

	assert.Equal(t, 1.0, crimeRate(3, bp))
	assert.Equal(t, 1.0, crimeRate(10, bp))
	assert.InDelta(t, 0.2*2/3, crimeRate(2, bp), 1e-9)
}

func TestCrimeRateZeroP25(t *testing.T) {
	bp := Breakpoints{P25: 0, P50: 1, P75: 2, P90: 3, P95: 4}
	assert.Equal(t, 0.2, crimeRate(0, bp))
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		name      string
		crimeType string
		override  map[string]float64
		want      float64
	}{
		{"known type", "robbery", nil, 0.9},
		{"case insensitive", "Robbery", nil, 0.9},
		{"padded", "  homicide  ", nil, 1.0},
		{"unknown type defaults", "jaywalking", nil, 0.5},
		{"override wins", "robbery", map[string]float64{"robbery": 0.5}, 0.5},
		{"override miss falls through", "robbery", map[string]float64{"arson": 0.1}, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, severityFor(tt.crimeType, tt.override))
		})
	}
}
