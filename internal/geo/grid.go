// Package geo provides the spatial grid index used to bucket coordinates
// into fixed-resolution cells, plus distance helpers shared by the scoring
// components.
package geo

import (
	"fmt"
	"math"
)

// DefaultResolutionDeg is the default grid cell size in degrees.
// At mid-latitudes this is roughly a 1 km square.
const DefaultResolutionDeg = 0.01

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000.0

// Grid maps coordinates to deterministic cell keys at a fixed resolution.
// The zero value is not usable; construct with NewGrid.
type Grid struct {
	resolution float64
}

// NewGrid returns a Grid with the given resolution in degrees. Non-positive
// resolutions fall back to DefaultResolutionDeg.
func NewGrid(resolutionDeg float64) *Grid {
	if resolutionDeg <= 0 {
		resolutionDeg = DefaultResolutionDeg
	}
	return &Grid{resolution: resolutionDeg}
}

// Resolution returns the grid resolution in degrees.
func (g *Grid) Resolution() float64 {
	return g.resolution
}

// snap rounds v to the nearest multiple of the grid resolution.
func (g *Grid) snap(v float64) float64 {
	s := math.Round(v/g.resolution) * g.resolution
	if s == 0 {
		// math.Round keeps the sign bit, and -0.0 formats as "-0.0000",
		// splitting the cells on the equator and prime meridian in two.
		return 0
	}
	return s
}

// CellKey returns the cell key for a coordinate. Same input always yields
// the same key; points closer together than half the resolution collapse
// into the same cell.
func (g *Grid) CellKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", g.snap(lat), g.snap(lon))
}

// CellCenter returns the center coordinate of the cell containing (lat, lon).
func (g *Grid) CellCenter(lat, lon float64) (float64, float64) {
	return g.snap(lat), g.snap(lon)
}

// NeighborKeys enumerates the cell keys in a square ring of the given radius
// around the cell containing (lat, lon), excluding the center cell itself.
// radius=1 yields the 8 immediate neighbors.
func (g *Grid) NeighborKeys(lat, lon float64, radius int) []string {
	if radius < 1 {
		radius = 1
	}
	clat, clon := g.snap(lat), g.snap(lon)

	keys := make([]string, 0, (2*radius+1)*(2*radius+1)-1)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nlat := g.snap(clat + float64(dy)*g.resolution)
			nlon := g.snap(clon + float64(dx)*g.resolution)
			keys = append(keys, fmt.Sprintf("%.4f,%.4f", nlat, nlon))
		}
	}
	return keys
}

// DistanceMeters returns the great-circle distance between two coordinates
// using the haversine formula.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	dla := (lat2 - lat1) * math.Pi / 180
	dlo := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dla/2)*math.Sin(dla/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dlo/2)*math.Sin(dlo/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BBox is a geographic bounding box.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the box contains the coordinate.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BBoxAround returns a bounding box covering the cell containing (lat, lon)
// expanded by marginMeters on each side.
func (g *Grid) BBoxAround(lat, lon float64, marginMeters float64) BBox {
	clat, clon := g.snap(lat), g.snap(lon)
	half := g.resolution / 2

	dLat := marginMeters / 111000.0
	dLon := dLat
	if c := math.Cos(clat * math.Pi / 180); c > 0.01 {
		dLon = dLat / c
	}

	return BBox{
		MinLat: clat - half - dLat,
		MinLon: clon - half - dLon,
		MaxLat: clat + half + dLat,
		MaxLon: clon + half + dLon,
	}
}

// ValidCoordinate reports whether lat/lon form a plausible WGS84 coordinate.
// (0,0) is rejected: in practice it marks a failed geocode, not a location.
func ValidCoordinate(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
