package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/db"
	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/hazard"
	"github.com/sells-group/saferoute/internal/lighting"
	"github.com/sells-group/saferoute/internal/safety"
)

// runtimeEnv holds the wired engine and everything it needs closed.
type runtimeEnv struct {
	Grid          *geo.Grid
	Engine        *safety.Engine
	LightingStore lighting.Store
	LightingCache *lighting.Cache
	Hazards       *hazard.Aggregator
	pool          *pgxpool.Pool
}

// Close releases the lighting store and the database pool.
func (e *runtimeEnv) Close() {
	if e.LightingStore != nil {
		if err := e.LightingStore.Close(); err != nil {
			zap.L().Warn("close lighting store", zap.Error(err))
		}
	}
	if e.pool != nil {
		e.pool.Close()
	}
}

// initEnv wires the scoring engine from config. The hazard aggregator is
// only attached when a database URL is configured; the lighting cache always
// runs, backed by the local SQLite store.
func initEnv(ctx context.Context) (*runtimeEnv, error) {
	grid := geo.NewGrid(cfg.Grid.ResolutionDeg)

	lightStore, err := lighting.NewSQLite(cfg.Store.LightingDB)
	if err != nil {
		return nil, eris.Wrap(err, "open lighting store")
	}
	if err := lightStore.Migrate(ctx); err != nil {
		_ = lightStore.Close()
		return nil, eris.Wrap(err, "migrate lighting store")
	}

	provider := lighting.NewOverpassClient(cfg.Lighting.OverpassURL,
		cfg.Lighting.RequestTimeout, cfg.Lighting.RatePerSecond)
	cache := lighting.NewCache(grid, lightStore, provider, lighting.Options{
		TTL:            cfg.Lighting.CacheTTL,
		SearchRadiusM:  cfg.Lighting.SearchRadiusM,
		FetchMarginM:   cfg.Lighting.FetchMarginM,
		DisableDayGate: cfg.Lighting.DisableDayGate,
	})

	env := &runtimeEnv{
		Grid:          grid,
		LightingStore: lightStore,
		LightingCache: cache,
	}

	if cfg.Store.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			_ = lightStore.Close()
			return nil, err
		}
		env.pool = pool

		community := hazard.NewPostgresStore(pool)
		if err := community.Migrate(ctx); err != nil {
			env.Close()
			return nil, eris.Wrap(err, "migrate hazard store")
		}

		var traffic hazard.TrafficProvider
		if cfg.Hazard.TrafficFeedURL != "" {
			traffic = hazard.NewTrafficFeedClient(cfg.Hazard.TrafficFeedURL, cfg.Hazard.QueryTimeout)
		}
		env.Hazards = hazard.NewAggregator(community, traffic, hazard.Options{
			SeverityWeights: cfg.Hazard.SeverityWeights,
			QueryTimeout:    cfg.Hazard.QueryTimeout,
			RadiusM:         cfg.Hazard.RadiusM,
		})
	}

	env.Engine = safety.NewEngine(grid, safety.EngineOptions{
		SampleIntervalM: cfg.Route.SampleIntervalM,
		Lighting:        cache,
		Hazards:         env.Hazards,
	})
	return env, nil
}
