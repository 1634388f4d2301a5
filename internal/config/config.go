// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for databases and caches, always absolute
	LogLevel  string
	LogPretty bool
	Port      int
	DevMode   bool

	// Market data client tuning
	RequestTimeout time.Duration
	RequestDelay   time.Duration // pacing between bulk requests
	CacheTTL       time.Duration

	// Backup destination (S3-compatible)
	Backup BackupConfig

	// Backtest defaults, overridable via a YAML file
	Costs CostConfig `yaml:"costs"`
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Bucket          string
	Endpoint        string // custom endpoint for R2/MinIO style stores, empty for AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// CostConfig holds default trading cost parameters for backtests
type CostConfig struct {
	Commission    float64 `yaml:"commission"`
	ExchangeFee   float64 `yaml:"exchange_fee"`
	ClearingFee   float64 `yaml:"clearing_fee"`
	OvernightRate float64 `yaml:"overnight_rate"`
	MarginRate    float64 `yaml:"margin_rate"`
}

// DefaultCosts returns the standard exchange fee schedule used when no
// override file is provided.
func DefaultCosts() CostConfig {
	return CostConfig{
		Commission:    2.50,
		ExchangeFee:   1.50,
		ClearingFee:   0.50,
		OvernightRate: 0.000137,
		MarginRate:    0.05,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DIVTRACK_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			dataDir = "./data"
		} else {
			dataDir = filepath.Join(home, ".divtrack")
		}
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("LOG_PRETTY", true),
		Port:           getEnvAsInt("DIVTRACK_PORT", 8010),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		RequestTimeout: time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		RequestDelay:   time.Duration(getEnvAsInt("REQUEST_DELAY_MS", 500)) * time.Millisecond,
		CacheTTL:       time.Duration(getEnvAsInt("CACHE_TTL_MINUTES", 60)) * time.Minute,
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("BACKUP_PREFIX", "divtrack"),
		},
		Costs: DefaultCosts(),
	}

	// Optional YAML override for cost parameters
	if path := getEnv("DIVTRACK_COSTS_FILE", ""); path != "" {
		if err := cfg.loadCostsFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadCostsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read costs file: %w", err)
	}
	var overrides struct {
		Costs CostConfig `yaml:"costs"`
	}
	overrides.Costs = c.Costs
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse costs file: %w", err)
	}
	c.Costs = overrides.Costs
	return nil
}

// DatabasePath returns the path of the main SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "stocks.db")
}

// CacheDir returns the directory used for cached market data.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Costs.MarginRate < 0 || c.Costs.MarginRate > 1 {
		return fmt.Errorf("invalid margin rate: %f", c.Costs.MarginRate)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
