// Package config loads and validates kolscout configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/kolscout/internal/scout"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server       ServerConfig                   `mapstructure:"server"`
	Auth         AuthConfig                     `mapstructure:"auth"`
	Scout        ScoutConfig                    `mapstructure:"scout"`
	Apify        ApifyConfig                    `mapstructure:"apify"`
	HTTP         HTTPConfig                     `mapstructure:"http"`
	Headless     HeadlessConfig                 `mapstructure:"headless"`
	Storage      StorageConfig                  `mapstructure:"storage"`
	DB           DBConfig                       `mapstructure:"db"`
	Supabase     SupabaseConfig                 `mapstructure:"supabase"`
	PubSub       PubSubConfig                   `mapstructure:"pubsub"`
	Cache        CacheConfig                    `mapstructure:"cache"`
	Redis        RedisConfig                    `mapstructure:"redis"`
	Logging      LoggingConfig                  `mapstructure:"logging"`
	Dedupe       DedupeConfig                   `mapstructure:"dedupe"`
	SearchTrends map[string]scout.JobParameters `mapstructure:"search_trends"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ScoutConfig governs the dispatcher and job pipeline.
type ScoutConfig struct {
	Workers      int `mapstructure:"workers"`
	QueueDepth   int `mapstructure:"queue_depth"`
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// ApifyConfig configures the actor client.
type ApifyConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	Token                string `mapstructure:"token"`
	WaitForFinishSeconds int    `mapstructure:"wait_for_finish_seconds"`
	PollIntervalSeconds  int    `mapstructure:"poll_interval_seconds"`
	RunTimeoutSeconds    int    `mapstructure:"run_timeout_seconds"`
	TikTokSearchActor    string `mapstructure:"tiktok_search_actor"`
	InstagramActor       string `mapstructure:"instagram_actor"`
	TikTokAnalyzeActor   string `mapstructure:"tiktok_analyze_actor"`
}

// HTTPConfig configures outbound HTTP: Apify retries and profile page fetches.
type HTTPConfig struct {
	TimeoutSeconds     int             `mapstructure:"timeout_seconds"`
	MaxRetryElapsedSec int             `mapstructure:"max_retry_elapsed_seconds"`
	UserAgent          string          `mapstructure:"user_agent"`
	RespectRobots      bool            `mapstructure:"respect_robots"`
	EnrichBios         bool            `mapstructure:"enrich_bios"`
	EnrichConcurrency  int             `mapstructure:"enrich_concurrency"`
	RateLimitRPS       float64         `mapstructure:"rate_limit_rps"`
	RateLimitBurst     int             `mapstructure:"rate_limit_burst"`
	HostRateLimits     []HostRateLimit `mapstructure:"host_rate_limits"`
	AcceptLanguage     string          `mapstructure:"accept_language"`
}

// HostRateLimit overrides the request rate for one host. Hosts are listed
// rather than keyed because Viper splits map keys on dots.
type HostRateLimit struct {
	Host string  `mapstructure:"host"`
	RPS  float64 `mapstructure:"rps"`
}

// HostRPS returns the per-host overrides keyed by lower-cased host.
func (c HTTPConfig) HostRPS() map[string]float64 {
	out := make(map[string]float64, len(c.HostRateLimits))
	for _, h := range c.HostRateLimits {
		out[strings.ToLower(strings.TrimSpace(h.Host))] = h.RPS
	}
	return out
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	SettleMillis    int  `mapstructure:"settle_ms"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// StorageConfig selects where raw actor datasets are archived.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig selects the persistence backend and configures Postgres.
type DBConfig struct {
	Backend         string `mapstructure:"backend"`
	DSN             string `mapstructure:"dsn"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime_minutes"`
}

// SupabaseConfig holds the project URL and service key.
type SupabaseConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

// PubSubConfig holds metadata for ingestion events.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// CacheConfig controls the source result cache.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Mode           string   `mapstructure:"mode"`
	Addrs          []string `mapstructure:"addrs"`
	MasterName     string   `mapstructure:"master_name"`
	DB             int      `mapstructure:"db"`
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	DialTimeoutSec int      `mapstructure:"dial_timeout_seconds"`
	PoolSize       int      `mapstructure:"pool_size"`
	TLSEnabled     bool     `mapstructure:"tls_enabled"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// DedupeConfig sets the default candidate dedupe scope.
type DedupeConfig struct {
	Scope string `mapstructure:"scope"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KOLSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("kolscout")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/kolscout/")
		v.AddConfigPath("$HOME/.kolscout")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("scout.workers", 2)
	v.SetDefault("scout.queue_depth", 64)
	v.SetDefault("scout.default_limit", 20)
	v.SetDefault("scout.max_limit", 100)
	v.SetDefault("apify.base_url", "https://api.apify.com")
	v.SetDefault("apify.wait_for_finish_seconds", 60)
	v.SetDefault("apify.poll_interval_seconds", 5)
	v.SetDefault("apify.run_timeout_seconds", 600)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retry_elapsed_seconds", 60)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; kolscout/0.1)")
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.enrich_bios", true)
	v.SetDefault("http.enrich_concurrency", 4)
	v.SetDefault("http.rate_limit_rps", 1.0)
	v.SetDefault("http.rate_limit_burst", 1)
	v.SetDefault("http.accept_language", "id-ID,id;q=0.9,en;q=0.8")
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.settle_ms", 750)
	v.SetDefault("headless.promotion_threshold", 60)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.local_dir", "data/raw")
	v.SetDefault("storage.prefix", "raw")
	v.SetDefault("db.backend", "memory")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("pubsub.topic_name", "kolscout-events")
	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.ttl_minutes", 360)
	v.SetDefault("cache.key_prefix", "kolscout:source:")
	v.SetDefault("redis.mode", "single")
	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("redis.dial_timeout_seconds", 5)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("dedupe.scope", string(scout.DedupePerCampaign))
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scout.Workers <= 0 {
		return fmt.Errorf("scout.workers must be > 0")
	}
	if c.Scout.QueueDepth <= 0 {
		return fmt.Errorf("scout.queue_depth must be > 0")
	}
	if c.Scout.MaxLimit > 0 && c.Scout.DefaultLimit > c.Scout.MaxLimit {
		return fmt.Errorf("scout.default_limit must not exceed scout.max_limit")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Backend {
	case "memory", "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	switch c.DB.Backend {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres backend")
		}
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.Key == "" {
			return fmt.Errorf("supabase.url and supabase.key must be set for the supabase backend")
		}
	default:
		return fmt.Errorf("db.backend %q is not supported", c.DB.Backend)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend %q is not supported", c.Cache.Backend)
	}
	if _, ok := scout.ParseDedupeScope(c.Dedupe.Scope); !ok {
		return fmt.Errorf("dedupe.scope %q is not supported", c.Dedupe.Scope)
	}
	for name, params := range c.SearchTrends {
		if err := params.Normalize().Validate(); err != nil {
			return fmt.Errorf("search_trends.%s: %w", name, err)
		}
	}
	return nil
}

// RequestTimeout is the per-request HTTP handler budget.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// CacheTTL is how long source results stay cached.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}
