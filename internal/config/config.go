package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Embed     EmbedConfig     `mapstructure:"embed"`
	Search    SearchConfig    `mapstructure:"search"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// CatalogConfig configures the metadata provider and the response cache.
type CatalogConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	ImageBaseSmall    string        `mapstructure:"image_base_small"`
	ImageBaseOriginal string        `mapstructure:"image_base_original"`
	Language          string        `mapstructure:"language"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RateLimit         float64       `mapstructure:"rate_limit"`
	RateBurst         int           `mapstructure:"rate_burst"`
	Breaker           BreakerConfig `mapstructure:"breaker"`
	Cache             CacheConfig   `mapstructure:"cache"`
}

// BreakerConfig configures the optional circuit breaker around provider calls.
type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	Interval     time.Duration `mapstructure:"interval"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout"`
}

// CacheConfig configures the response cache that sits above the provider client.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Backend   string        `mapstructure:"backend"`
	TTL       time.Duration `mapstructure:"ttl"`
	Size      int           `mapstructure:"size"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// EmbedConfig holds the embeddable player hosts.
type EmbedConfig struct {
	MovieBase string `mapstructure:"movie_base"`
	TVBase    string `mapstructure:"tv_base"`
}

// SearchConfig configures live search sessions and the search endpoint limiter.
type SearchConfig struct {
	Debounce          time.Duration `mapstructure:"debounce"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// SchedulerConfig configures background jobs.
type SchedulerConfig struct {
	WarmCache     bool   `mapstructure:"warm_cache"`
	WarmCacheCron string `mapstructure:"warm_cache_cron"`
}

// Default returns a Config with default values.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.eduwatcheru")
	}

	v.SetEnvPrefix("EDUWATCHERU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	// Registered with an empty default so Unmarshal sees EDUWATCHERU_CATALOG_API_KEY.
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.base_url", DefaultAPIBase)
	v.SetDefault("catalog.image_base_small", DefaultImageBaseSmall)
	v.SetDefault("catalog.image_base_original", DefaultImageBaseOriginal)
	v.SetDefault("catalog.language", DefaultLanguage)
	v.SetDefault("catalog.timeout", 10*time.Second)
	v.SetDefault("catalog.rate_limit", 40.0)
	v.SetDefault("catalog.rate_burst", 20)

	v.SetDefault("catalog.breaker.enabled", false)
	v.SetDefault("catalog.breaker.min_requests", 10)
	v.SetDefault("catalog.breaker.failure_ratio", 0.6)
	v.SetDefault("catalog.breaker.interval", time.Minute)
	v.SetDefault("catalog.breaker.open_timeout", 30*time.Second)

	v.SetDefault("catalog.cache.enabled", true)
	v.SetDefault("catalog.cache.backend", "memory")
	v.SetDefault("catalog.cache.ttl", 15*time.Minute)
	v.SetDefault("catalog.cache.size", 512)
	v.SetDefault("catalog.cache.redis_addr", "localhost:6379")
	v.SetDefault("catalog.cache.redis_db", 0)
	v.SetDefault("catalog.cache.key_prefix", "eduwatcheru:")

	v.SetDefault("embed.movie_base", DefaultMovieEmbedBase)
	v.SetDefault("embed.tv_base", DefaultTVEmbedBase)

	v.SetDefault("search.debounce", 300*time.Millisecond)
	v.SetDefault("search.requests_per_minute", 60)

	v.SetDefault("scheduler.warm_cache", true)
	v.SetDefault("scheduler.warm_cache_cron", "*/10 * * * *")
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
