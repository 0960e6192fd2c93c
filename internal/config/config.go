package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidConfig is wrapped by every validation error returned from Load.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Alerts   AlertsConfig
}

type ServerConfig struct {
	AppName string
	AppEnv  string
	Port    int
}

type LoggerConfig struct {
	Level string
}

type PostgresConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type AlertsConfig struct {
	Threshold   int
	Cron        string
	Timezone    string
	Location    *time.Location
	SupportMail string
	SendTimeout time.Duration
	Concurrency int
	LockTTL     time.Duration
}

const (
	DefaultLowStockThreshold = 10
	DefaultLowStockCron      = "0 9 * * *"
	DefaultLowStockTimezone  = "UTC"
)

// IsDevelopment reports whether the process runs with APP_ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development"
}

// Load reads the process environment. All problems are reported together.
func Load() (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	port, err := getEnvInt("PORT", 8080)
	collect(err)
	redisDB, err := getEnvInt("REDIS_DB", 0)
	collect(err)
	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	collect(err)
	threshold, err := getEnvInt("LOW_STOCK_THRESHOLD", DefaultLowStockThreshold)
	collect(err)
	concurrency, err := getEnvInt("ALERT_CONCURRENCY", 5)
	collect(err)
	sendTimeout, err := getEnvDuration("ALERT_SEND_TIMEOUT", 10*time.Second)
	collect(err)
	lockTTL, err := getEnvDuration("SWEEP_LOCK_TTL", 10*time.Minute)
	collect(err)

	appName := getEnv("APP_NAME", "inventoryflow")
	cfg := &Config{
		Server: ServerConfig{
			AppName: appName,
			AppEnv:  getEnv("APP_ENV", "production"),
			Port:    port,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Postgres: PostgresConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     smtpPort,
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "no-reply@"+appName+".app"),
		},
		Alerts: AlertsConfig{
			Threshold:   threshold,
			Cron:        getEnv("LOW_STOCK_CRON", DefaultLowStockCron),
			Timezone:    getEnv("LOW_STOCK_TIMEZONE", DefaultLowStockTimezone),
			SupportMail: getEnv("SUPPORT_MAIL", "support@"+appName+".app"),
			SendTimeout: sendTimeout,
			Concurrency: concurrency,
			LockTTL:     lockTTL,
		},
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.Postgres.URL == "" {
		invalid("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		invalid("JWT_SECRET is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		invalid("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Alerts.Threshold < 1 {
		invalid("LOW_STOCK_THRESHOLD must be a positive integer, got %d", c.Alerts.Threshold)
	}
	if _, err := cron.ParseStandard(c.Alerts.Cron); err != nil {
		invalid("LOW_STOCK_CRON %q: %v", c.Alerts.Cron, err)
	}
	loc, err := time.LoadLocation(c.Alerts.Timezone)
	if err != nil {
		invalid("LOW_STOCK_TIMEZONE %q: %v", c.Alerts.Timezone, err)
	} else {
		c.Alerts.Location = loc
	}
	if _, err := mail.ParseAddress(c.Alerts.SupportMail); err != nil {
		invalid("SUPPORT_MAIL %q: %v", c.Alerts.SupportMail, err)
	}
	if _, err := mail.ParseAddress(c.SMTP.From); err != nil {
		invalid("MAIL_FROM %q: %v", c.SMTP.From, err)
	}
	if c.Alerts.SendTimeout <= 0 {
		invalid("ALERT_SEND_TIMEOUT must be positive")
	}
	if c.Alerts.LockTTL <= 0 {
		invalid("SWEEP_LOCK_TTL must be positive")
	}
	if c.Alerts.Concurrency < 1 {
		invalid("ALERT_CONCURRENCY must be at least 1, got %d", c.Alerts.Concurrency)
	}
	return errs
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return fallback
}

// getEnvInt differs from a lenient lookup: a value that is present but not a
// number is an error rather than a silent fallback.
func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, key, value)
	}
	return i, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%w: %s must be a duration, got %q", ErrInvalidConfig, key, value)
	}
	return d, nil
}
