// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/bananalabs-oss/potassium/config"
	"github.com/joho/godotenv"

	"github.com/mmynk/tripmatch/internal/planner"
)

// Config holds everything the server binary needs.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration

	Port   string
	DBPath string

	// RedisURL enables the Redis group locker when set.
	RedisURL string
	LockTTL  time.Duration

	Rules planner.Rules
}

// Load reads .env (when present) and the process environment. JWT_SECRET is required.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		JWTSecret: config.RequireEnv("JWT_SECRET"),
		Port:      config.EnvOrDefault("PORT", "8080"),
		DBPath:    config.EnvOrDefault("DB_PATH", "./data/tripmatch.db"),
		RedisURL:  config.EnvOrDefault("REDIS_URL", ""),
	}

	var err error
	if cfg.TokenTTL, err = duration("TOKEN_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = duration("LOCK_TTL", "30s"); err != nil {
		return nil, err
	}

	rules := planner.DefaultRules()
	tz := config.EnvOrDefault("TIMEZONE", "Asia/Taipei")
	if rules.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	if rules.PricingTimeout, err = duration("PRICING_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if rules.PricingConcurrency, err = positive("PRICING_CONCURRENCY", "4"); err != nil {
		return nil, err
	}
	if rules.DefaultTripDays, err = positive("DEFAULT_TRIP_DAYS", "3"); err != nil {
		return nil, err
	}
	rules.PlaceholderDestination = config.EnvOrDefault("PLACEHOLDER_DESTINATION", "ANY")
	cfg.Rules = rules

	return cfg, nil
}

// LogValue keeps the secret out of logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("port", c.Port),
		slog.String("db_path", c.DBPath),
		slog.Bool("redis", c.RedisURL != ""),
		slog.String("timezone", c.Rules.Location.String()),
		slog.Duration("pricing_timeout", c.Rules.PricingTimeout),
		slog.Int("pricing_concurrency", c.Rules.PricingConcurrency),
	)
}

func duration(key, fallback string) (time.Duration, error) {
	raw := config.EnvOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, raw)
	}
	return d, nil
}

func positive(key, fallback string) (int, error) {
	raw := config.EnvOrDefault(key, fallback)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}
