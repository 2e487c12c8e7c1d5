package config

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env       string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	DBPath    string `env:"DB_PATH" envDefault:"./scheduler.db" validate:"required"`
	LogDir    string `env:"LOG_DIR" envDefault:"./logs" validate:"required"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"INFO" validate:"required,oneof=DEBUG INFO WARNING ERROR"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"required,oneof=text json"`

	CheckIntervalSec   int `env:"CHECK_INTERVAL" envDefault:"60" validate:"min=1"`
	ShutdownTimeoutSec int `env:"SHUTDOWN_TIMEOUT" envDefault:"30" validate:"min=1"`
	RunRetentionDays   int `env:"RUN_RETENTION_DAYS" envDefault:"30" validate:"min=0"`
	MaxConcurrentJobs  int `env:"MAX_CONCURRENT_JOBS" envDefault:"0"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8090"`

	WebhookURL    string `env:"WEBHOOK_URL"`
	NotifyEmailTo string `env:"NOTIFY_EMAIL_TO"`
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	ResendFrom    string `env:"RESEND_FROM"`

	AuthToken string `env:"AUTH_TOKEN"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.NotifyEmailTo != "" && cfg.Env != "local" {
		if cfg.ResendAPIKey == "" || cfg.ResendFrom == "" {
			return nil, fmt.Errorf("invalid config: RESEND_API_KEY and RESEND_FROM are required when NOTIFY_EMAIL_TO is set outside local")
		}
	}

	return cfg, nil
}

// SlogLevel converts LOG_LEVEL to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WorkerPoolSize resolves MAX_CONCURRENT_JOBS, defaulting to CPU count x4
// when unset.
func (c *Config) WorkerPoolSize() int {
	if c.MaxConcurrentJobs > 0 {
		return c.MaxConcurrentJobs
	}
	return runtime.NumCPU() * 4
}
