package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/phone-finder/pkg/webhook"
)

// Config holds the full application configuration.
type Config struct {
	Webhook WebhookConfig `yaml:"webhook" mapstructure:"webhook"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// WebhookConfig configures the phone lookup webhook and its attempt sequence.
type WebhookConfig struct {
	URL                 string   `yaml:"url" mapstructure:"url"`
	UserAgents          []string `yaml:"user_agents" mapstructure:"user_agents"`
	TimeoutSecs         int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts         int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	IndividualBackoffMs int      `yaml:"individual_backoff_ms" mapstructure:"individual_backoff_ms"`
	BulkBackoffMs       int      `yaml:"bulk_backoff_ms" mapstructure:"bulk_backoff_ms"`
	RateLimitRPS        float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// Timeout returns the per-request timeout.
func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// IndividualBackoff returns the wait after a failed individual-mode attempt.
func (c WebhookConfig) IndividualBackoff() time.Duration {
	return time.Duration(c.IndividualBackoffMs) * time.Millisecond
}

// BulkBackoff returns the wait after a failed bulk-mode attempt.
func (c WebhookConfig) BulkBackoff() time.Duration {
	return time.Duration(c.BulkBackoffMs) * time.Millisecond
}

// BatchConfig configures bulk processing.
type BatchConfig struct {
	PacingMs int `yaml:"pacing_ms" mapstructure:"pacing_ms"`
}

// Pacing returns the delay between companies of a bulk run.
func (c BatchConfig) Pacing() time.Duration {
	return time.Duration(c.PacingMs) * time.Millisecond
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
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
	v.SetEnvPrefix("PHONEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("webhook.url", webhook.DefaultURL)
	v.SetDefault("webhook.user_agents", webhook.DefaultUserAgents())
	v.SetDefault("webhook.timeout_secs", 60)
	v.SetDefault("webhook.max_attempts", 3)
	v.SetDefault("webhook.individual_backoff_ms", 1000)
	v.SetDefault("webhook.bulk_backoff_ms", 500)
	v.SetDefault("webhook.rate_limit_rps", 0)
	v.SetDefault("batch.pacing_ms", 1000)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "phone-finder.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
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

// Validate checks the settings required by the given mode: "run" and
// "serve" need the webhook and the store, "runs" only the store.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run", "serve":
		errs = append(errs, c.validateWebhook()...)
		errs = append(errs, c.validateStore()...)
		if c.Batch.PacingMs < 0 {
			errs = append(errs, "batch.pacing_ms must be >= 0")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "runs":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateWebhook() []string {
	var errs []string
	u, err := url.Parse(c.Webhook.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("webhook.url %q is not an http(s) URL", c.Webhook.URL))
	}
	if len(c.Webhook.UserAgents) == 0 {
		errs = append(errs, "webhook.user_agents must not be empty")
	}
	for i, ua := range c.Webhook.UserAgents {
		if strings.TrimSpace(ua) == "" {
			errs = append(errs, fmt.Sprintf("webhook.user_agents[%d] is blank", i))
		}
	}
	if c.Webhook.MaxAttempts < 1 {
		errs = append(errs, "webhook.max_attempts must be >= 1")
	}
	if c.Webhook.TimeoutSecs < 1 {
		errs = append(errs, "webhook.timeout_secs must be >= 1")
	}
	if c.Webhook.IndividualBackoffMs < 0 || c.Webhook.BulkBackoffMs < 0 {
		errs = append(errs, "webhook backoff values must be >= 0")
	}
	if c.Webhook.RateLimitRPS < 0 {
		errs = append(errs, "webhook.rate_limit_rps must be >= 0")
	}
	return errs
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
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
