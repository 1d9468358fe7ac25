// Package config loads engine configuration from the environment, with an
// optional .env file for development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppPort           string        // HTTP port
	DBPath            string        // SQLite path, ":memory:" for in-memory
	JWTSecret         string        // secret for verifying bearer tokens; empty disables auth
	RedisAddr         string        // redis address; empty disables the read cache
	RedisPass         string        // redis password
	RedisDB           int           // redis database number
	SchedulerInterval time.Duration // how often the accrual scheduler fires
	SchedulerEnabled  bool
}

// Load reads configuration from environment variables, loading .env first
// if present.
func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	interval := time.Hour
	if v := os.Getenv("SCHEDULER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	return &Config{
		AppPort:           envOr("APP_PORT", "8080"),
		DBPath:            envOr("DB_PATH", "payroll.db"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPass:         os.Getenv("REDIS_PASS"),
		RedisDB:           redisDB,
		SchedulerInterval: interval,
		SchedulerEnabled:  os.Getenv("SCHEDULER_DISABLED") != "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
