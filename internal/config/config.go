package config

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/london-map/internal/fetcher"
	"github.com/sells-group/london-map/internal/selection"
	"github.com/sells-group/london-map/internal/session"
	"github.com/sells-group/london-map/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Records   RecordsConfig   `yaml:"records" mapstructure:"records"`
	Selection SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Style     StyleConfig     `yaml:"style" mapstructure:"style"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the payloads. Each value is a path, an http(s) URL or
// an ftp:// URL.
type DataConfig struct {
	BoroughsGeoJSON    string `yaml:"boroughs_geojson" mapstructure:"boroughs_geojson"`
	PostcodesGeoJSON   string `yaml:"postcodes_geojson" mapstructure:"postcodes_geojson"`
	BoroughsShapefile  string `yaml:"boroughs_shapefile" mapstructure:"boroughs_shapefile"`
	ShapefileNameField string `yaml:"shapefile_name_field" mapstructure:"shapefile_name_field"`
	PostcodePrices     string `yaml:"postcode_prices" mapstructure:"postcode_prices"`
	BoroughPrices      string `yaml:"borough_prices" mapstructure:"borough_prices"`
	Metrics            string `yaml:"metrics" mapstructure:"metrics"`
}

// FetchConfig configures remote payload downloads.
type FetchConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// RecordsConfig selects an optional flat price-record source.
type RecordsConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
	Sheet  string `yaml:"sheet" mapstructure:"sheet"`
}

// SelectionConfig bounds what the user may select.
type SelectionConfig struct {
	MinYear      int     `yaml:"min_year" mapstructure:"min_year"`
	MaxYear      int     `yaml:"max_year" mapstructure:"max_year"`
	PriceCeiling float64 `yaml:"price_ceiling" mapstructure:"price_ceiling"`
}

// StyleConfig configures colors.
type StyleConfig struct {
	PalettePath string `yaml:"palette_path" mapstructure:"palette_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CacheSize      int      `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLSecs   int      `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("LONDONMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.boroughs_geojson", "data/london_boroughs.geojson")
	v.SetDefault("data.postcodes_geojson", "data/london_postcodes.geojson")
	v.SetDefault("data.boroughs_shapefile", "")
	v.SetDefault("data.shapefile_name_field", session.DefaultShapefileNameField)
	v.SetDefault("data.postcode_prices", "data/london_postcode_prices.json")
	v.SetDefault("data.borough_prices", "data/london_borough_prices.json")
	v.SetDefault("data.metrics", "data/london_metrics.json")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.user_agent", "londonmap/1.0")
	v.SetDefault("fetch.requests_per_second", 20)
	v.SetDefault("fetch.max_attempts", 1)
	v.SetDefault("records.driver", "")
	v.SetDefault("records.dsn", "")
	v.SetDefault("records.sheet", "")
	v.SetDefault("selection.min_year", 2015)
	v.SetDefault("selection.max_year", 2026)
	v.SetDefault("selection.price_ceiling", 3_000_000)
	v.SetDefault("style.palette_path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cache_size", 512)
	v.SetDefault("server.cache_ttl_secs", 600)
	v.SetDefault("server.allowed_origins", []string{"*"})
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

// Validate checks settings that would otherwise fail deep inside a load.
func (c *Config) Validate() error {
	if err := c.Bounds().Validate(); err != nil {
		return eris.Wrap(err, "config: selection")
	}
	if c.Data.BoroughsGeoJSON == "" && c.Data.BoroughsShapefile == "" {
		return eris.New("config: data.boroughs_geojson or data.boroughs_shapefile is required")
	}
	if c.Data.PostcodesGeoJSON == "" {
		return eris.New("config: data.postcodes_geojson is required")
	}
	driver := strings.ToLower(strings.TrimSpace(c.Records.Driver))
	if driver != store.DriverNone {
		if !slices.Contains(store.Drivers(), driver) {
			return eris.Errorf("config: unknown records.driver %q", c.Records.Driver)
		}
		if c.Records.DSN == "" {
			return eris.New("config: records.dsn is required when records.driver is set")
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	return nil
}

// Bounds converts the selection section.
func (c *Config) Bounds() selection.Bounds {
	return selection.Bounds{
		MinYear:      c.Selection.MinYear,
		MaxYear:      c.Selection.MaxYear,
		PriceCeiling: c.Selection.PriceCeiling,
	}
}

// SessionOptions assembles everything session.Load needs.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Sources: session.Sources{
			BoroughsGeoJSON:    c.Data.BoroughsGeoJSON,
			PostcodesGeoJSON:   c.Data.PostcodesGeoJSON,
			BoroughsShapefile:  c.Data.BoroughsShapefile,
			ShapefileNameField: c.Data.ShapefileNameField,
			PostcodePrices:     c.Data.PostcodePrices,
			BoroughPrices:      c.Data.BoroughPrices,
			Metrics:            c.Data.Metrics,
		},
		Records: store.Options{
			Driver: c.Records.Driver,
			DSN:    c.Records.DSN,
			Sheet:  c.Records.Sheet,
		},
		Fetch:       c.FetchOptions(),
		Bounds:      c.Bounds(),
		PalettePath: c.Style.PalettePath,
	}
}

// FetchOptions converts the fetch section.
func (c *Config) FetchOptions() fetcher.Options {
	return fetcher.Options{
		UserAgent:         c.Fetch.UserAgent,
		Timeout:           time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		RequestsPerSecond: c.Fetch.RequestsPerSecond,
		MaxAttempts:       c.Fetch.MaxAttempts,
	}
}

// CacheTTL is the style cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Server.CacheTTLSecs) * time.Second
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
