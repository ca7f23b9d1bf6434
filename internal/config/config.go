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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Anthropic  ProviderConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity ProviderConfig   `yaml:"perplexity" mapstructure:"perplexity"`
	OpenAI     ProviderConfig   `yaml:"openai" mapstructure:"openai"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	NATS       NATSConfig       `yaml:"nats" mapstructure:"nats"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// EnrichmentConfig selects mock vs real enrichment.
type EnrichmentConfig struct {
	Mock                bool  `yaml:"mock" mapstructure:"mock"`
	Seed                int64 `yaml:"seed" mapstructure:"seed"`
	ProviderTimeoutSecs int   `yaml:"provider_timeout_secs" mapstructure:"provider_timeout_secs"`
}

// ProviderTimeout returns the per-provider call timeout.
func (e EnrichmentConfig) ProviderTimeout() time.Duration {
	if e.ProviderTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.ProviderTimeoutSecs) * time.Second
}

// ProviderConfig holds credentials and tuning for one LLM enrichment provider.
type ProviderConfig struct {
	Key     string  `yaml:"key" mapstructure:"key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	Model   string  `yaml:"model" mapstructure:"model"`
	RateRPS float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
}

// Configured reports whether credentials are present.
func (p ProviderConfig) Configured() bool {
	return strings.TrimSpace(p.Key) != ""
}

// ResilienceConfig configures retries and circuit breaking for provider calls.
type ResilienceConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	ChunkSize        int `yaml:"chunk_size" mapstructure:"chunk_size"`
	RetentionMinutes int `yaml:"retention_minutes" mapstructure:"retention_minutes"`
}

// Retention returns how long finished jobs stay observable.
func (b BatchConfig) Retention() time.Duration {
	if b.RetentionMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(b.RetentionMinutes) * time.Minute
}

// NATSConfig configures the optional progress publisher.
type NATSConfig struct {
	URL           string `yaml:"url" mapstructure:"url"`
	SubjectPrefix string `yaml:"subject_prefix" mapstructure:"subject_prefix"`
}

// RedisConfig configures the optional job snapshot cache.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("enrichment.mock", false)
	v.SetDefault("enrichment.seed", 0)
	v.SetDefault("enrichment.provider_timeout_secs", 30)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.rate_rps", 2)
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.rate_rps", 2)
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.rate_rps", 2)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 10000)
	v.SetDefault("resilience.multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("batch.chunk_size", 10)
	v.SetDefault("batch.retention_minutes", 60)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "leads.batch")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
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

// ConfiguredProviders returns the names of real enrichment providers that
// have credentials, in registration order.
func (c *Config) ConfiguredProviders() []string {
	var names []string
	if c.Anthropic.Configured() {
		names = append(names, "anthropic")
	}
	if c.OpenAI.Configured() {
		names = append(names, "openai")
	}
	if c.Perplexity.Configured() {
		names = append(names, "perplexity")
	}
	return names
}

// Validate checks the configuration required by a command mode.
// Modes: "store", "enrichment", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres (LEADS_STORE_DATABASE_URL)")
	}

	if mode == "enrichment" || mode == "serve" {
		if c.Batch.ChunkSize <= 0 {
			errs = append(errs, "batch.chunk_size must be > 0")
		}
		if c.Enrichment.ProviderTimeoutSecs < 0 {
			errs = append(errs, "enrichment.provider_timeout_secs must be >= 0")
		}
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
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
