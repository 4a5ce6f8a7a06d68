package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Worker    WorkerConfig    `mapstructure:",squash"`
	WhatsApp  WhatsAppConfig  `mapstructure:",squash"`
	Currency  CurrencyConfig  `mapstructure:",squash"`
	SIAF      SIAFConfig      `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
	Cache     CacheConfig     `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port            string `mapstructure:"SERVER_PORT"`
	Host            string `mapstructure:"SERVER_HOST"`
	Env             string `mapstructure:"ENV"`
	ReadTimeout     string `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout    string `mapstructure:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout string `mapstructure:"SERVER_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"DATABASE_URL"`
	Host           string `mapstructure:"DATABASE_HOST"`
	Port           string `mapstructure:"DATABASE_PORT"`
	Name           string `mapstructure:"DATABASE_NAME"`
	User           string `mapstructure:"DATABASE_USER"`
	Password       string `mapstructure:"DATABASE_PASSWORD"`
	SSLMode        string `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns   int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns   int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
}

type RedisConfig struct {
	URL      string `mapstructure:"REDIS_URL"`
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	VencimientoCron string `mapstructure:"VENCIMIENTO_CRON"`
	DaysAhead       int    `mapstructure:"VENCIMIENTO_DAYS"`
	DedupWindow     string `mapstructure:"NOTIFICATION_DEDUP_WINDOW"`
	Timezone        string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type WorkerConfig struct {
	Concurrency  int    `mapstructure:"WORKER_CONCURRENCY"`
	MaxAttempts  int    `mapstructure:"WORKER_MAX_ATTEMPTS"`
	RetryBackoff string `mapstructure:"WORKER_RETRY_BACKOFF"`
	PollTimeout  string `mapstructure:"WORKER_POLL_TIMEOUT"`
	QueueKey     string `mapstructure:"NOTIFICATION_QUEUE_KEY"`
}

type WhatsAppConfig struct {
	APIURL       string `mapstructure:"WHATSAPP_API_URL"`
	APIToken     string `mapstructure:"WHATSAPP_API_TOKEN"`
	Timeout      string `mapstructure:"WHATSAPP_TIMEOUT"`
	AdminGroupID string `mapstructure:"WHATSAPP_ADMIN_GROUP_ID"`
}

// CurrencyConfig.ExchangeRates is a comma separated list of CODE:rate pairs
// quoted against the default currency.
type CurrencyConfig struct {
	Default       string `mapstructure:"CURRENCY_DEFAULT"`
	ExchangeRates string `mapstructure:"EXCHANGE_RATES"`
}

type SIAFConfig struct {
	ProxyURL       string `mapstructure:"SIAF_PROXY_URL"`
	ProxySecret    string `mapstructure:"SIAF_PROXY_SECRET"`
	CaptchaTimeout string `mapstructure:"SIAF_CAPTCHA_TIMEOUT"`
	ConsultTimeout string `mapstructure:"SIAF_CONSULT_TIMEOUT"`
	SessionTTL     string `mapstructure:"SIAF_SESSION_TTL"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type RateLimitConfig struct {
	Payments string `mapstructure:"RATE_LIMIT_PAYMENTS"` // limiter format, e.g. "60-M"
}

type CacheConfig struct {
	ScheduleTTL string `mapstructure:"SCHEDULE_CACHE_TTL"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":               "8080",
	"SERVER_HOST":               "0.0.0.0",
	"ENV":                       "development",
	"SERVER_READ_TIMEOUT":       "15s",
	"SERVER_WRITE_TIMEOUT":      "60s",
	"SERVER_SHUTDOWN_TIMEOUT":   "30s",
	"DATABASE_URL":              "",
	"DATABASE_HOST":             "localhost",
	"DATABASE_PORT":             "5432",
	"DATABASE_NAME":             "lending_engine",
	"DATABASE_USER":             "postgres",
	"DATABASE_PASSWORD":         "",
	"DATABASE_SSLMODE":          "disable",
	"DATABASE_MAX_OPEN_CONNS":   25,
	"DATABASE_MAX_IDLE_CONNS":   5,
	"MIGRATIONS_PATH":           "file://migrations",
	"REDIS_URL":                 "",
	"REDIS_HOST":                "localhost",
	"REDIS_PORT":                "6379",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"VENCIMIENTO_CRON":          "0 0 9 * * *",
	"VENCIMIENTO_DAYS":          3,
	"NOTIFICATION_DEDUP_WINDOW": "24h",
	"SCHEDULER_TIMEZONE":        "America/Lima",
	"WORKER_CONCURRENCY":        4,
	"WORKER_MAX_ATTEMPTS":       3,
	"WORKER_RETRY_BACKOFF":      "30s",
	"WORKER_POLL_TIMEOUT":       "5s",
	"NOTIFICATION_QUEUE_KEY":    "notifications:whatsapp",
	"WHATSAPP_API_URL":          "",
	"WHATSAPP_API_TOKEN":        "",
	"WHATSAPP_TIMEOUT":          "15s",
	"WHATSAPP_ADMIN_GROUP_ID":   "",
	"CURRENCY_DEFAULT":          "PEN",
	"EXCHANGE_RATES":            "PEN:1,USD:0.27,EUR:0.25",
	"SIAF_PROXY_URL":            "",
	"SIAF_PROXY_SECRET":         "",
	"SIAF_CAPTCHA_TIMEOUT":      "25s",
	"SIAF_CONSULT_TIMEOUT":      "45s",
	"SIAF_SESSION_TTL":          "10m",
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
	"RATE_LIMIT_PAYMENTS":       "60-M",
	"SCHEDULE_CACHE_TTL":        "24h",
	"HEALTH_CHECK_TIMEOUT":      "5s",
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("DATABASE_URL or DATABASE_HOST is required")
	}

	if c.Scheduler.DaysAhead < 0 {
		return fmt.Errorf("VENCIMIENTO_DAYS must not be negative")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be greater than 0")
	}

	if c.Worker.MaxAttempts <= 0 {
		return fmt.Errorf("WORKER_MAX_ATTEMPTS must be greater than 0")
	}

	if c.Worker.QueueKey == "" {
		return fmt.Errorf("NOTIFICATION_QUEUE_KEY is required")
	}

	durations := map[string]string{
		"SERVER_READ_TIMEOUT":       c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":      c.Server.WriteTimeout,
		"SERVER_SHUTDOWN_TIMEOUT":   c.Server.ShutdownTimeout,
		"NOTIFICATION_DEDUP_WINDOW": c.Scheduler.DedupWindow,
		"WORKER_RETRY_BACKOFF":      c.Worker.RetryBackoff,
		"WORKER_POLL_TIMEOUT":       c.Worker.PollTimeout,
		"WHATSAPP_TIMEOUT":          c.WhatsApp.Timeout,
		"SIAF_CAPTCHA_TIMEOUT":      c.SIAF.CaptchaTimeout,
		"SIAF_CONSULT_TIMEOUT":      c.SIAF.ConsultTimeout,
		"SIAF_SESSION_TTL":          c.SIAF.SessionTTL,
		"SCHEDULE_CACHE_TTL":        c.Cache.ScheduleTTL,
		"HEALTH_CHECK_TIMEOUT":      c.Health.Timeout,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	// Validate cron specs (seconds field enabled)
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for key, spec := range map[string]string{
		"VENCIMIENTO_CRON": c.Scheduler.VencimientoCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s must be a valid cron spec: %w", key, err)
		}
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	if _, err := c.GetExchangeRates(); err != nil {
		return fmt.Errorf("EXCHANGE_RATES is invalid: %w", err)
	}

	if _, err := limiter.NewRateFromFormatted(c.RateLimit.Payments); err != nil {
		return fmt.Errorf("RATE_LIMIT_PAYMENTS is invalid: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// DSN returns DATABASE_URL, or a postgres URL built from the individual settings.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// GetExchangeRates parses EXCHANGE_RATES into a code -> rate map.
func (c *Config) GetExchangeRates() (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	if strings.TrimSpace(c.Currency.ExchangeRates) == "" {
		return rates, nil
	}

	for _, pair := range strings.Split(c.Currency.ExchangeRates, ",") {
		code, value, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("expected CODE:rate, got %q", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}

	return rates, nil
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func (c *Config) GetReadTimeout() time.Duration { return mustDuration(c.Server.ReadTimeout) }
func (c *Config) GetWriteTimeout() time.Duration { return mustDuration(c.Server.WriteTimeout) }
func (c *Config) GetShutdownTimeout() time.Duration { return mustDuration(c.Server.ShutdownTimeout) }
func (c *Config) GetDedupWindow() time.Duration { return mustDuration(c.Scheduler.DedupWindow) }
func (c *Config) GetRetryBackoff() time.Duration { return mustDuration(c.Worker.RetryBackoff) }
func (c *Config) GetPollTimeout() time.Duration { return mustDuration(c.Worker.PollTimeout) }
func (c *Config) GetWhatsAppTimeout() time.Duration { return mustDuration(c.WhatsApp.Timeout) }
func (c *Config) GetCaptchaTimeout() time.Duration { return mustDuration(c.SIAF.CaptchaTimeout) }
func (c *Config) GetConsultTimeout() time.Duration { return mustDuration(c.SIAF.ConsultTimeout) }
func (c *Config) GetSIAFSessionTTL() time.Duration { return mustDuration(c.SIAF.SessionTTL) }
func (c *Config) GetScheduleCacheTTL() time.Duration { return mustDuration(c.Cache.ScheduleTTL) }

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	return mustDuration(c.Health.Timeout)
}

// GetLocation returns the scheduler timezone, UTC when it cannot be loaded.
func (c *Config) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
