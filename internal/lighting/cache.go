// Package lighting implements the TTL-cached, grid-indexed street-lighting
// coverage index.
package lighting

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// Index constants.
const (
	// daylightIndex is returned during local daytime without touching the
	// cache. Lighting is irrelevant in daylight.
	daylightIndex = 0.1

	// darkFallback is returned when no lighting features are cached near
	// the query point.
	darkFallback = 0.7

	// DefaultSearchRadiusM is the default feature search radius.
	DefaultSearchRadiusM = 100.0
)

// Provider fetches raw lighting features for a bounding box from an
// external dataset.
type Provider interface {
	QueryFeatures(ctx context.Context, box geo.BBox) ([]RawFeature, error)
	Source() string
}

// Options configure a Cache.
type Options struct {
	TTL            time.Duration // cache entry lifetime; default 30 days
	SearchRadiusM  float64       // search radius when a query passes none; default 100 m
	FetchMarginM   float64       // bbox margin around the target cell
	DisableDayGate bool          // always consult the cache, even in daylight
	Now            func() time.Time
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Refreshes int64 `json:"refreshes"`
	Failures  int64 `json:"failures"`
}

// Cache computes proximity-weighted lighting indexes over a grid-indexed
// feature store, refreshing stale cells from the provider. Concurrent
// misses on the same cell are collapsed into a single upstream fetch.
type Cache struct {
	grid     *geo.Grid
	store    Store
	provider Provider
	opts     Options

	group     singleflight.Group
	hits      atomic.Int64
	misses    atomic.Int64
	refreshes atomic.Int64
	failures  atomic.Int64
}

// NewCache returns a Cache over the given store and provider.
func NewCache(grid *geo.Grid, store Store, provider Provider, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = 30 * 24 * time.Hour
	}
	if opts.SearchRadiusM <= 0 {
		opts.SearchRadiusM = DefaultSearchRadiusM
	}
	if opts.FetchMarginM <= 0 {
		opts.FetchMarginM = 200
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{grid: grid, store: store, provider: provider, opts: opts}
}

// Index returns the lighting index for a point in [0,1], where 0 is well
// lit. A non-positive searchRadiusM uses the configured default. Provider and
// store failures degrade to cached data or the dark fallback, never error.
func (c *Cache) Index(ctx context.Context, lat, lon, searchRadiusM float64) float64 {
	if searchRadiusM <= 0 {
		searchRadiusM = c.opts.SearchRadiusM
	}

	now := c.opts.Now()
	if !c.opts.DisableDayGate && isDaylight(now, lon) {
		return daylightIndex
	}

	cellKey := c.grid.CellKey(lat, lon)
	if c.stale(ctx, cellKey, now) {
		c.misses.Add(1)
		c.refresh(ctx, cellKey, lat, lon)
	} else {
		c.hits.Add(1)
	}

	// Features from the cell and its ring, filtered by true distance.
	keys := append([]string{cellKey}, c.grid.NeighborKeys(lat, lon, 1)...)
	features, err := c.store.Features(ctx, keys)
	if err != nil {
		zap.L().Warn("lighting: feature query failed", zap.String("cell", cellKey), zap.Error(err))
		return darkFallback
	}

	return weightedIndex(features, lat, lon, searchRadiusM)
}

// stale reports whether the cell needs a refresh.
func (c *Cache) stale(ctx context.Context, cellKey string, now time.Time) bool {
	fetchedAt, ok, err := c.store.CellFetchedAt(ctx, cellKey)
	if err != nil {
		zap.L().Warn("lighting: fetched_at lookup failed", zap.String("cell", cellKey), zap.Error(err))
		return false // can't tell; serve whatever is cached
	}
	return !ok || now.Sub(fetchedAt) > c.opts.TTL
}

// refresh fetches the cell's features from the provider exactly once per
// cell key no matter how many callers miss concurrently. A failed refresh
// is logged; each caller then falls back to cached data independently.
func (c *Cache) refresh(ctx context.Context, cellKey string, lat, lon float64) {
	_, err, _ := c.group.Do(cellKey, func() (any, error) {
		c.refreshes.Add(1)
		now := c.opts.Now()

		box := c.grid.BBoxAround(lat, lon, c.opts.FetchMarginM)
		raws, err := c.provider.QueryFeatures(ctx, box)
		if err != nil {
			return nil, err
		}

		features := make([]model.LightingFeature, 0, len(raws))
		for _, raw := range raws {
			features = append(features, DeriveFeature(raw, c.provider.Source(), now))
		}
		return nil, c.store.ReplaceCell(ctx, cellKey, now, features)
	})
	if err != nil {
		c.failures.Add(1)
		zap.L().Warn("lighting: cell refresh failed", zap.String("cell", cellKey), zap.Error(err))
	}
}

// Stats returns cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Refreshes: c.refreshes.Load(),
		Failures:  c.failures.Load(),
	}
}

// weightedIndex averages feature lighting scores weighted by proximity.
// A feature has full influence inside its coverage radius, decaying
// linearly to zero at the search radius.
func weightedIndex(features []model.LightingFeature, lat, lon, searchRadiusM float64) float64 {
	var weightedSum, totalInfluence float64
	for _, f := range features {
		dist := geo.DistanceMeters(lat, lon, f.Latitude, f.Longitude)
		if dist > searchRadiusM {
			continue
		}

		influence := 1.0
		if dist > f.CoverageRadius {
			span := searchRadiusM - f.CoverageRadius
			if span <= 0 {
				continue
			}
			influence = 1 - (dist-f.CoverageRadius)/span
		}
		if influence <= 0 {
			continue
		}

		weightedSum += f.LightingScore * influence
		totalInfluence += influence
	}

	if totalInfluence == 0 {
		return darkFallback
	}
	return model.Clamp01(weightedSum / totalInfluence)
}

// isDaylight estimates local daytime from a longitude-derived hour offset:
// [06:00, 20:00) local counts as daylight.
func isDaylight(now time.Time, lon float64) bool {
	utcHour := float64(now.UTC().Hour()) + float64(now.UTC().Minute())/60
	localHour := math.Mod(utcHour+lon/15+24, 24)
	return localHour >= 6 && localHour < 20
}
