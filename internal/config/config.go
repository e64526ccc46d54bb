// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"`
	Search  SearchConfig  `mapstructure:"search"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	DB      DBConfig      `mapstructure:"db"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SiteConfig identifies the origin site and the provenance tags stamped onto
// every record produced by this pipeline.
type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Type    string `mapstructure:"type"`
	Space   string `mapstructure:"space"`
	Source  string `mapstructure:"source"`
	AdType  string `mapstructure:"ad_type"`
}

// SearchConfig holds the search filters applied to every city.
type SearchConfig struct {
	Cities    []string `mapstructure:"cities"`
	Rooms     []string `mapstructure:"rooms"`
	HasPhotos bool     `mapstructure:"has_photos"`
	FromOwner bool     `mapstructure:"from_owner"`
}

// CrawlerConfig governs traversal limits and origin-site pacing.
type CrawlerConfig struct {
	MaxAdsPerCity  int `mapstructure:"max_ads_per_city"`
	ListingDelayMs int `mapstructure:"listing_delay_ms"`
}

// HTTPConfig configures the fetch client and its retry behavior.
type HTTPConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	RetryDelaySec  int    `mapstructure:"retry_delay_seconds"`
}

// ProxyConfig describes the forward proxy used for phone disclosure calls.
type ProxyConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// MetricsConfig enables the admin HTTP listener when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OLXCRAWLER")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.type", "nedvizhimost")
	v.SetDefault("site.space", "arenda-kvartiry")
	v.SetDefault("site.source", "parser_olx")
	v.SetDefault("site.ad_type", "rentOut")
	v.SetDefault("search.has_photos", true)
	v.SetDefault("search.from_owner", true)
	v.SetDefault("crawler.max_ads_per_city", 50)
	v.SetDefault("crawler.listing_delay_ms", 1000)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko)")
	v.SetDefault("http.timeout_seconds", 5)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.retry_delay_seconds", 3)
	v.SetDefault("proxy.timeout_seconds", 10)
	v.SetDefault("db.table", "ads")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if len(c.Search.Cities) == 0 {
		return fmt.Errorf("search.cities must not be empty")
	}
	if c.Crawler.MaxAdsPerCity <= 0 {
		return fmt.Errorf("crawler.max_ads_per_city must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.Proxy.Host != "" && c.Proxy.Port <= 0 {
		return fmt.Errorf("proxy.port must be > 0 when proxy.host is set")
	}
	return nil
}

// HTTPTimeout converts the fetch timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RetryDelay converts the fixed retry delay into a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.HTTP.RetryDelaySec) * time.Second
}

// ListingDelay converts the inter-listing pacing knob into a duration.
func (c Config) ListingDelay() time.Duration {
	return time.Duration(c.Crawler.ListingDelayMs) * time.Millisecond
}
