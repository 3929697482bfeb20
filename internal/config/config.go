package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/routing"
)

const (
	// EnvPrefix prefixes environment overrides, e.g.
	// TRIPMAP_DIRECTIONS__API_KEY sets directions.api_key.
	EnvPrefix = "TRIPMAP_"

	// DefaultFile is read when present and no file is named explicitly.
	DefaultFile = "tripmap.yaml"

	// TilesDisabled as render.tile_url draws on a plain white background.
	TilesDisabled = "none"

	ProviderMaps   = "maps"
	ProviderRoutes = "routes"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete configuration
type Config struct {
	Directions DirectionsConfig `yaml:"directions"`
	Render     RenderConfig     `yaml:"render"`
	Output     OutputConfig     `yaml:"output"`
	// Timezone decides calendar days. Empty means the machine's local zone.
	Timezone string    `yaml:"timezone"`
	Log      LogConfig `yaml:"log"`
}

// DirectionsConfig holds directions service settings
type DirectionsConfig struct {
	// Provider is "maps" (Directions API) or "routes" (Routes API v2)
	Provider        string        `yaml:"provider"`
	APIKey          string        `yaml:"api_key"`
	Mode            string        `yaml:"mode"`
	ThresholdMeters float64       `yaml:"threshold_meters"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
}

// RenderConfig holds canvas and tile settings
type RenderConfig struct {
	ShortSide       int           `yaml:"short_side"`
	ProbeSize       int           `yaml:"probe_size"`
	TileSize        int           `yaml:"tile_size"`
	MaxZoom         int           `yaml:"max_zoom"`
	Padding         int           `yaml:"padding"`
	TileURL         string        `yaml:"tile_url"`
	TileCacheDir    string        `yaml:"tile_cache_dir"`
	TileConcurrency int           `yaml:"tile_concurrency"`
	TileTimeout     time.Duration `yaml:"tile_timeout"`
	TileUserAgent   string        `yaml:"tile_user_agent"`
	Caption         bool          `yaml:"caption"`
}

// OutputConfig names output files. Empty export paths are skipped.
type OutputConfig struct {
	Path    string `yaml:"path"`
	KML     string `yaml:"kml"`
	GeoJSON string `yaml:"geojson"`
	GPX     string `yaml:"gpx"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Directions: DirectionsConfig{
			Provider:        ProviderMaps,
			Mode:            string(routing.Bicycling),
			ThresholdMeters: 500,
			Timeout:         30 * time.Second,
		},
		Render: RenderConfig{
			ShortSide:       1000,
			ProbeSize:       1000,
			TileSize:        256,
			MaxZoom:         17,
			TileURL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
			TileConcurrency: 4,
			TileTimeout:     10 * time.Second,
			TileUserAgent:   "batey-bike-trip-records/1.0",
			Caption:         true,
		},
		Output: OutputConfig{
			Path: "map.png",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaults() map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		"directions.provider":         d.Directions.Provider,
		"directions.api_key":          d.Directions.APIKey,
		"directions.mode":             d.Directions.Mode,
		"directions.threshold_meters": d.Directions.ThresholdMeters,
		"directions.base_url":         d.Directions.BaseURL,
		"directions.timeout":          d.Directions.Timeout.String(),
		"render.short_side":           d.Render.ShortSide,
		"render.probe_size":           d.Render.ProbeSize,
		"render.tile_size":            d.Render.TileSize,
		"render.max_zoom":             d.Render.MaxZoom,
		"render.padding":              d.Render.Padding,
		"render.tile_url":             d.Render.TileURL,
		"render.tile_cache_dir":       d.Render.TileCacheDir,
		"render.tile_concurrency":     d.Render.TileConcurrency,
		"render.tile_timeout":         d.Render.TileTimeout.String(),
		"render.tile_user_agent":      d.Render.TileUserAgent,
		"render.caption":              d.Render.Caption,
		"output.path":                 d.Output.Path,
		"output.kml":                  d.Output.KML,
		"output.geojson":              d.Output.GeoJSON,
		"output.gpx":                  d.Output.GPX,
		"timezone":                    d.Timezone,
		"log.level":                   d.Log.Level,
		"log.format":                  d.Log.Format,
	}
}

// Load layers defaults, the YAML file at path and TRIPMAP_ environment
// variables, later layers winning. An empty path reads DefaultFile if it
// exists.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Directions.Provider {
	case ProviderMaps, ProviderRoutes:
	default:
		return fmt.Errorf("%w: directions.provider must be %q or %q, got %q", ErrInvalidConfig, ProviderMaps, ProviderRoutes, c.Directions.Provider)
	}
	if _, ok := routing.ParseTravelMode(c.Directions.Mode); !ok {
		return fmt.Errorf("%w: unknown directions.mode %q", ErrInvalidConfig, c.Directions.Mode)
	}
	if c.Directions.ThresholdMeters <= 0 {
		return fmt.Errorf("%w: directions.threshold_meters must be positive", ErrInvalidConfig)
	}
	if c.Render.ShortSide <= 0 || c.Render.ProbeSize <= 0 || c.Render.TileSize <= 0 {
		return fmt.Errorf("%w: render sizes must be positive", ErrInvalidConfig)
	}
	if c.Render.MaxZoom < 0 || c.Render.MaxZoom > 22 {
		return fmt.Errorf("%w: render.max_zoom must be within [0, 22]", ErrInvalidConfig)
	}
	if c.Output.Path == "" {
		return fmt.Errorf("%w: output.path is required", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Timezone)
	}
}

// TravelMode returns the configured mode, defaulting to bicycling.
func (d DirectionsConfig) TravelMode() routing.TravelMode {
	mode, ok := routing.ParseTravelMode(d.Mode)
	if !ok {
		return routing.Bicycling
	}
	return mode
}

// TilesEnabled reports whether a tile background is drawn.
func (r RenderConfig) TilesEnabled() bool {
	return r.TileURL != "" && r.TileURL != TilesDisabled
}
