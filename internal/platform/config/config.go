// Package config centralizes the environment variables read by the binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates every parameter needed by the API and the worker.
type Config struct {
	HTTPAddress string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CounterKeyPrefix  string
	FeedChannelPrefix string
	SessionKeyPrefix  string

	SessionTTL time.Duration

	LoginThrottleEnabled       bool
	LoginThrottleMaxAttempts   int
	LoginThrottleWindowSeconds int
	LoginThrottleKeyPrefix     string

	AutoMigrate bool

	WorkerMetricsAddress string
	ReconcileInterval    time.Duration

	BootstrapAdminName     string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

func Load() (Config, error) {
	// Defaults favor local runs; environment variables override in Docker/K8s.
	cfg := Config{
		HTTPAddress:                getEnv("HTTP_ADDRESS", ":8080"),
		PostgresHost:               getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:               getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:               getEnv("POSTGRES_USER", "campusvote"),
		PostgresPassword:           getEnv("POSTGRES_PASSWORD", "campusvote"),
		PostgresDB:                 getEnv("POSTGRES_DB", "campusvote"),
		PostgresSSLMode:            getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:                  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:              os.Getenv("REDIS_PASSWORD"),
		CounterKeyPrefix:           getEnv("REDIS_COUNTER_PREFIX", "tally"),
		FeedChannelPrefix:          getEnv("REDIS_FEED_PREFIX", "ballots"),
		SessionKeyPrefix:           getEnv("REDIS_SESSION_PREFIX", "session"),
		LoginThrottleEnabled:       getEnvAsBool("LOGIN_THROTTLE_ENABLED", true),
		LoginThrottleMaxAttempts:   getEnvAsInt("LOGIN_THROTTLE_MAX", 10),
		LoginThrottleWindowSeconds: getEnvAsInt("LOGIN_THROTTLE_WINDOW", 60),
		LoginThrottleKeyPrefix:     getEnv("LOGIN_THROTTLE_PREFIX", "throttle"),
		AutoMigrate:                getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress:       getEnv("WORKER_METRICS_ADDRESS", ":9090"),
		BootstrapAdminName:         getEnv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
		BootstrapAdminEmail:        os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword:     os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = dbInt

	sessionHours := getEnvAsInt("SESSION_TTL_HOURS", 12)
	if sessionHours <= 0 {
		return Config{}, fmt.Errorf("config: SESSION_TTL_HOURS must be positive, got %d", sessionHours)
	}
	cfg.SessionTTL = time.Duration(sessionHours) * time.Hour

	reconcileSeconds := getEnvAsInt("RECONCILE_INTERVAL_SECONDS", 30)
	if reconcileSeconds <= 0 {
		return Config{}, fmt.Errorf("config: RECONCILE_INTERVAL_SECONDS must be positive, got %d", reconcileSeconds)
	}
	cfg.ReconcileInterval = time.Duration(reconcileSeconds) * time.Second

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	// DSN format shared by GORM and the migration tooling.
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}
