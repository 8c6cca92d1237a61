// Package config reads process configuration from the environment, after
// loading an optional .env file.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"socialfeed/internal/database"
	"socialfeed/internal/feeds"
	"socialfeed/internal/ranking"

	"github.com/joho/godotenv"
)

// Config holds everything the server and commands need to start
type Config struct {
	Env  string
	Port string

	JWTSecret string
	JWTIssuer string

	// RedisAddr empty selects the in-process KV store
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Database *database.Config
	Feed     feeds.Options

	TrendingRefresh time.Duration
}

// Load reads .env (when present) and the environment
func Load() (*Config, error) {
	// .env is optional; the real environment wins over it
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:           getEnv("ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "socialfeed"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		Database:      database.LoadConfig(),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TrendingRefresh, err = getEnvDuration("TRENDING_REFRESH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	weights, err := ranking.ParseWeights(getEnv("FEED_WEIGHTS", ""))
	if err != nil {
		return nil, fmt.Errorf("FEED_WEIGHTS: %w", err)
	}
	for name := range ranking.DefaultWeights() {
		key := "FEED_WEIGHT_" + strings.ToUpper(name)
		if weights[name], err = getEnvFloat(key, weights[name]); err != nil {
			return nil, err
		}
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("feed weights: %w", err)
	}
	cfg.Feed.Weights = weights

	window, err := getEnvInt("FEED_DIVERSITY_WINDOW", ranking.DefaultDiversityWindow)
	if err != nil {
		return nil, err
	}
	cfg.Feed.DiversityWindow = &window

	ints := []struct {
		key string
		dst *int
		def int
	}{
		{"FEED_CANDIDATE_POOL", &cfg.Feed.CandidatePool, feeds.DefaultCandidatePool},
		{"FEED_INTERACTION_LIMIT", &cfg.Feed.InteractionLimit, feeds.DefaultInteractionLimit},
		{"FEED_BATCH_SIZE", &cfg.Feed.BatchSize, feeds.DefaultBatchSize},
		{"FEED_CONCURRENCY", &cfg.Feed.Concurrency, feeds.DefaultConcurrency},
	}
	for _, f := range ints {
		if *f.dst, err = getEnvInt(f.key, f.def); err != nil {
			return nil, err
		}
	}
	if cfg.Feed.CandidateWindow, err = getEnvDuration("FEED_CANDIDATE_WINDOW", feeds.DefaultCandidateWindow); err != nil {
		return nil, err
	}
	if cfg.Feed.CallTimeout, err = getEnvDuration("FEED_CALL_TIMEOUT", feeds.DefaultCallTimeout); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" && cfg.Env == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	return cfg, nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %q is not a finite number", key, value)
	}
	return f, nil
}
