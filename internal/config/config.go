// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for all databases (always absolute)
	CatalogPath string // Portfolio catalog YAML; empty uses the embedded catalog
	LogLevel    string
	Port        int
	DevMode     bool
	Scenario    *ScenarioConfig
	Provider    *ProviderConfig
}

// ScenarioConfig holds score cache and population settings
type ScenarioConfig struct {
	CacheVersion       int
	ComputeTimeout     time.Duration
	PopulateSchedule   string // Six-field cron expression; empty disables scheduled population
	PopulateAttempts   int
	PopulateRetryDelay time.Duration
}

// ProviderConfig holds price provider limits
type ProviderConfig struct {
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   int
	BreakerTimeout    time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("ANALOGS_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:     absDataDir,
		CatalogPath: getEnv("CATALOG_PATH", ""),
		Port:        getEnvAsInt("ANALOGS_PORT", 8001),
		DevMode:     getEnvAsBool("DEV_MODE", false),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Scenario: &ScenarioConfig{
			CacheVersion:       getEnvAsInt("SCENARIO_CACHE_VERSION", 1),
			ComputeTimeout:     getEnvAsDuration("SCENARIO_SCORE_TIMEOUT", 20*time.Second),
			PopulateSchedule:   getEnvAllowEmpty("SCENARIO_POPULATE_SCHEDULE", "0 0 3 * * *"),
			PopulateAttempts:   getEnvAsInt("SCENARIO_POPULATE_ATTEMPTS", 3),
			PopulateRetryDelay: getEnvAsDuration("SCENARIO_POPULATE_RETRY_DELAY", 2*time.Second),
		},
		Provider: &ProviderConfig{
			RequestsPerSecond: getEnvAsFloat("PRICE_PROVIDER_RPS", 20),
			Burst:             getEnvAsInt("PRICE_PROVIDER_BURST", 5),
			BreakerFailures:   getEnvAsInt("PRICE_BREAKER_FAILURES", 5),
			BreakerTimeout:    getEnvAsDuration("PRICE_BREAKER_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Scenario.CacheVersion <= 0 {
		return fmt.Errorf("SCENARIO_CACHE_VERSION must be positive, got %d", c.Scenario.CacheVersion)
	}
	if c.Scenario.ComputeTimeout <= 0 {
		return fmt.Errorf("SCENARIO_SCORE_TIMEOUT must be positive")
	}
	if c.Scenario.PopulateAttempts <= 0 {
		return fmt.Errorf("SCENARIO_POPULATE_ATTEMPTS must be positive, got %d", c.Scenario.PopulateAttempts)
	}
	if c.Scenario.PopulateSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Scenario.PopulateSchedule); err != nil {
			return fmt.Errorf("invalid SCENARIO_POPULATE_SCHEDULE %q: %w", c.Scenario.PopulateSchedule, err)
		}
	}
	if c.Provider.RequestsPerSecond <= 0 || c.Provider.Burst <= 0 {
		return fmt.Errorf("price provider rate limits must be positive")
	}
	if c.Provider.BreakerFailures <= 0 {
		return fmt.Errorf("PRICE_BREAKER_FAILURES must be positive, got %d", c.Provider.BreakerFailures)
	}
	return nil
}

// DatabasePath returns the file path of a named database inside DataDir
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes an unset variable from one set to ""
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
