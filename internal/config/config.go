// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Port            string
	LogLevel        logrus.Level
	DatabaseURL     string
	KafkaBrokers    string
	DishesSeedFile  string
	OrdersSeedFile  string
	BreakerFailures int
	BreakerTimeout  time.Duration
	// BreakerRequests is the number of trial publishes allowed while half-open.
	BreakerRequests int
	ShutdownTimeout time.Duration
}

// Load returns the configuration from environment variables, using defaults
// for unset ones. Set but malformed values are errors.
func Load() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "5001"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		KafkaBrokers:   getEnv("KAFKA_BROKERS", ""),
		DishesSeedFile: getEnv("DISHES_SEED_FILE", ""),
		OrdersSeedFile: getEnv("ORDERS_SEED_FILE", ""),
	}

	var err error
	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.BreakerFailures, err = strconv.Atoi(getEnv("BREAKER_MAX_FAILURES", "5")); err != nil {
		return Config{}, fmt.Errorf("BREAKER_MAX_FAILURES: %w", err)
	}
	if cfg.BreakerTimeout, err = time.ParseDuration(getEnv("BREAKER_TIMEOUT", "30s")); err != nil {
		return Config{}, fmt.Errorf("BREAKER_TIMEOUT: %w", err)
	}
	if cfg.BreakerRequests, err = strconv.Atoi(getEnv("BREAKER_MAX_REQUESTS", "1")); err != nil {
		return Config{}, fmt.Errorf("BREAKER_MAX_REQUESTS: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s")); err != nil {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
