package crimegrid

import "sort"

// Breakpoints holds the crime-count distribution percentiles used for
// rank-based normalization.
type Breakpoints struct {
	P25 float64
	P50 float64
	P75 float64
	P90 float64
	P95 float64
}

// computeBreakpoints derives percentile breakpoints from the per-cell crime
// counts. Percentiles use the floor-index method: sorted[int(p*(n-1))].
// Returns ok=false for an empty distribution.
func computeBreakpoints(counts []int) (Breakpoints, bool) {
	if len(counts) == 0 {
		return Breakpoints{}, false
	}

	sorted := make([]int, len(counts))
	copy(sorted, counts)
	sort.Ints(sorted)

	pick := func(p float64) float64 {
		idx := int(p * float64(len(sorted)-1))
		return float64(sorted[idx])
	}

	return Breakpoints{
		P25: pick(0.25),
		P50: pick(0.50),
		P75: pick(0.75),
		P90: pick(0.90),
		P95: pick(0.95),
	}, true
}

// crimeRate maps a cell's crime count into [0,1] piecewise-linearly against
// the breakpoints: [0,p25]→[0,0.2], (p25,p50]→(0.2,0.4], (p50,p75]→(0.4,0.6],
// (p75,p90]→(0.6,0.8], (p90,p95)→(0.8,1.0), saturating at 1.0 from p95 up.
func crimeRate(count float64, bp Breakpoints) float64 {
	switch {
	case count >= bp.P95:
		return 1.0
	case count > bp.P90:
		return 0.8 + 0.2*fraction(count, bp.P90, bp.P95)
	case count > bp.P75:
		return 0.6 + 0.2*fraction(count, bp.P75, bp.P90)
	case count > bp.P50:
		return 0.4 + 0.2*fraction(count, bp.P50, bp.P75)
	case count > bp.P25:
		return 0.2 + 0.2*fraction(count, bp.P25, bp.P50)
	default:
		if bp.P25 <= 0 {
			return 0.2
		}
		return 0.2 * count / bp.P25
	}
}

// fraction returns (v-lo)/(hi-lo) guarded against a degenerate span, which
// happens when adjacent percentiles land on the same count.
func fraction(v, lo, hi float64) float64 {
	if hi <= lo {
		return 1.0
	}
	f := (v - lo) / (hi - lo)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
