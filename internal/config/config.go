// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Grid     GridConfig     `yaml:"grid" mapstructure:"grid"`
	Lighting LightingConfig `yaml:"lighting" mapstructure:"lighting"`
	Hazard   HazardConfig   `yaml:"hazard" mapstructure:"hazard"`
	Route    RouteConfig    `yaml:"route" mapstructure:"route"`
	Weights  WeightsConfig  `yaml:"weights" mapstructure:"weights"`
	Routing  RoutingConfig  `yaml:"routing" mapstructure:"routing"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backends.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	LightingDB  string `yaml:"lighting_db" mapstructure:"lighting_db"`
}

// GridConfig configures the crime grid.
type GridConfig struct {
	ResolutionDeg float64 `yaml:"resolution_deg" mapstructure:"resolution_deg"`
}

// LightingConfig configures the lighting coverage cache and its dataset provider.
type LightingConfig struct {
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	SearchRadiusM  float64       `yaml:"search_radius_m" mapstructure:"search_radius_m"`
	OverpassURL    string        `yaml:"overpass_url" mapstructure:"overpass_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	RatePerSecond  float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	FetchMarginM   float64       `yaml:"fetch_margin_m" mapstructure:"fetch_margin_m"`
	DisableDayGate bool          `yaml:"disable_day_gate" mapstructure:"disable_day_gate"`
}

// HazardConfig configures hazard aggregation.
type HazardConfig struct {
	RadiusM         float64            `yaml:"radius_m" mapstructure:"radius_m"`
	QueryTimeout    time.Duration      `yaml:"query_timeout" mapstructure:"query_timeout"`
	TrafficFeedURL  string             `yaml:"traffic_feed_url" mapstructure:"traffic_feed_url"`
	SeverityWeights map[string]float64 `yaml:"severity_weights" mapstructure:"severity_weights"`
}

// RouteConfig configures route sampling and scoring.
type RouteConfig struct {
	SampleIntervalM float64 `yaml:"sample_interval_m" mapstructure:"sample_interval_m"`
}

// WeightsConfig holds the default factor weights for the composite score.
type WeightsConfig struct {
	Crime     float64 `yaml:"crime" mapstructure:"crime"`
	Collision float64 `yaml:"collision" mapstructure:"collision"`
	Lighting  float64 `yaml:"lighting" mapstructure:"lighting"`
	Hazard    float64 `yaml:"hazard" mapstructure:"hazard"`
}

// RoutingConfig configures the external routing provider.
type RoutingConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAFEROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("grid.resolution_deg", 0.01)
	v.SetDefault("lighting.cache_ttl", "720h") // 30 days
	v.SetDefault("lighting.search_radius_m", 100.0)
	v.SetDefault("lighting.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("lighting.request_timeout", "10s")
	v.SetDefault("lighting.rate_per_second", 1.0)
	v.SetDefault("lighting.fetch_margin_m", 200.0)
	v.SetDefault("hazard.radius_m", 500.0)
	v.SetDefault("hazard.query_timeout", "3s")
	v.SetDefault("hazard.severity_weights", map[string]float64{
		"low": 0.5, "medium": 1.2, "high": 2.5, "critical": 3.0,
	})
	v.SetDefault("route.sample_interval_m", 100.0)
	v.SetDefault("weights.crime", 0.4)
	v.SetDefault("weights.collision", 0.25)
	v.SetDefault("weights.lighting", 0.2)
	v.SetDefault("weights.hazard", 0.15)
	v.SetDefault("routing.base_url", "https://router.project-osrm.org")
	v.SetDefault("routing.request_timeout", "10s")
	v.SetDefault("store.lighting_db", "saferoute-lighting.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
