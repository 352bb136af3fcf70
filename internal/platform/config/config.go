// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings for the service.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Re-verification cycle
	StaleThresholdDays int      `env:"FACT_CHECK_STALE_DAYS" envDefault:"90"`
	BatchSize          int      `env:"FACT_CHECK_BATCH_SIZE" envDefault:"50"`
	ScheduleTimes      []string `env:"FACT_CHECK_SCHEDULE" envDefault:"02:00" envSeparator:","`
	ScheduleTimezone   string   `env:"FACT_CHECK_TIMEZONE" envDefault:"UTC"`
	SchedulerTick      string   `env:"SCHEDULER_TICK_INTERVAL" envDefault:"1m"`

	// Verification provider
	LLMAPIKey       string        `env:"LLM_API_KEY,required"`
	LLMModel        string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	RateLimitRPS    int           `env:"RATE_LIMIT_RPS" envDefault:"1"`
	VerifyTimeout   time.Duration `env:"VERIFY_TIMEOUT" envDefault:"2m"`
	MaxClaimLength  int           `env:"VERIFY_MAX_CLAIM_LENGTH" envDefault:"2000"`
	TranslateClaims bool          `env:"VERIFY_TRANSLATE_CLAIMS" envDefault:"true"`

	// Language service (Google Cloud Translation v2)
	GoogleTranslateAPIKey string        `env:"GOOGLE_TRANSLATE_API_KEY"`
	DetectTimeout         time.Duration `env:"LANGUAGE_DETECT_TIMEOUT" envDefault:"5s"`
	TranslateTimeout      time.Duration `env:"LANGUAGE_TRANSLATE_TIMEOUT" envDefault:"10s"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// Load reads configuration from the environment, optionally seeded from a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}

// TickInterval parses the scheduler tick interval, falling back to one minute.
func (c *Config) TickInterval() time.Duration {
	d, err := time.ParseDuration(c.SchedulerTick)
	if err != nil || d <= 0 {
		return time.Minute
	}

	return d
}

// StaleCutoff returns the staleness cutoff relative to now.
func (c *Config) StaleCutoff(now time.Time) time.Time {
	days := c.StaleThresholdDays
	if days <= 0 {
		days = 90
	}

	return now.AddDate(0, 0, -days)
}
