// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/auctionops/hibid-crawler/internal/scraper"
)

// Config captures all configuration knobs loaded via Viper. Validation runs
// separately so CLI flag overrides can be applied first.
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SearchConfig supplies the lot search parameters.
type SearchConfig struct {
	ZipCode     string   `mapstructure:"zip_code"`
	RadiusMiles int      `mapstructure:"radius_miles"`
	Categories  []string `mapstructure:"categories"`
	TestMode    bool     `mapstructure:"test_mode"`
	TestLimit   int      `mapstructure:"test_limit"`
}

// ScraperConfig governs pagination and rate limiting.
type ScraperConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	UserAgent            string `mapstructure:"user_agent"`
	PageSize             int    `mapstructure:"page_size"`
	PartialPageThreshold int    `mapstructure:"partial_page_threshold"`
	DelayMinSeconds      int    `mapstructure:"delay_min_seconds"`
	DelayMaxSeconds      int    `mapstructure:"delay_max_seconds"`
}

// HTTPConfig configures fetch timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds     int `mapstructure:"timeout_seconds"`
	MaxRetries         int `mapstructure:"max_retries"`
	BackoffStepSeconds int `mapstructure:"backoff_step_seconds"`
}

// DBConfig selects the storage backend by DSN scheme.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// MetricsConfig enables the optional Prometheus endpoint when ListenAddr is
// set.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment. Env vars use the HIBID
// prefix, e.g. HIBID_SEARCH_ZIP_CODE.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HIBID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.zip_code", "")
	v.SetDefault("search.radius_miles", 50)
	v.SetDefault("search.categories", []string{})
	v.SetDefault("search.test_mode", false)
	v.SetDefault("search.test_limit", 20)

	v.SetDefault("scraper.base_url", scraper.DefaultBaseURL)
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.page_size", scraper.DefaultPageSize)
	v.SetDefault("scraper.partial_page_threshold", 0)
	v.SetDefault("scraper.delay_min_seconds", 2)
	v.SetDefault("scraper.delay_max_seconds", 5)

	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_step_seconds", 5)

	v.SetDefault("db.dsn", "sqlite:///hibid_auctions.db")
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Search.ZipCode == "" {
		return fmt.Errorf("search.zip_code is required (set HIBID_SEARCH_ZIP_CODE or pass --zip)")
	}
	if c.Search.RadiusMiles <= 0 {
		return fmt.Errorf("search.radius_miles must be > 0")
	}
	if c.Search.TestMode && c.Search.TestLimit <= 0 {
		return fmt.Errorf("search.test_limit must be > 0 in test mode")
	}
	if c.Scraper.PageSize <= 0 {
		return fmt.Errorf("scraper.page_size must be > 0")
	}
	if c.Scraper.DelayMinSeconds < 0 || c.Scraper.DelayMaxSeconds < c.Scraper.DelayMinSeconds {
		return fmt.Errorf("scraper.delay_min_seconds/delay_max_seconds must satisfy 0 <= min <= max")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	return nil
}

// EngineConfig converts the loaded settings into the engine's session config.
func (c Config) EngineConfig() scraper.Config {
	return scraper.Config{
		BaseURL:              c.Scraper.BaseURL,
		UserAgent:            c.Scraper.UserAgent,
		ZipCode:              c.Search.ZipCode,
		RadiusMiles:          c.Search.RadiusMiles,
		Categories:           c.Search.Categories,
		TestMode:             c.Search.TestMode,
		TestLimit:            c.Search.TestLimit,
		DelayMin:             time.Duration(c.Scraper.DelayMinSeconds) * time.Second,
		DelayMax:             time.Duration(c.Scraper.DelayMaxSeconds) * time.Second,
		PageSize:             c.Scraper.PageSize,
		PartialPageThreshold: c.Scraper.PartialPageThreshold,
		FetchTimeout:         time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
		FetchRetries:         c.HTTP.MaxRetries,
		BackoffStep:          time.Duration(c.HTTP.BackoffStepSeconds) * time.Second,
	}
}
