package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"farmledger/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Deposit deduplication
	DedupWindow time.Duration

	// Farming accrual
	AccrualPeriod     time.Duration
	MaxCatchUpWindows int64

	// Referral commissions
	ReferralRates     []decimal.Decimal // per-level fractions, level 1 first
	ReferralMaxLevel  int
	ReferralMinPayout decimal.Decimal

	// Reconciliation
	ReconcileInterval time.Duration

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated); empty disables event publishing

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "otlp", "console", or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Defaults
		DedupWindow:       10 * time.Minute,
		AccrualPeriod:     5 * time.Minute,
		MaxCatchUpWindows: 288, // one day at the default period
		ReferralMaxLevel:  20,
		ReferralMinPayout: decimal.RequireFromString("0.000001"),
		ReconcileInterval: 24 * time.Hour,

		// NATS; empty means event publishing is disabled
		NATSServers: os.Getenv("NATS_SERVERS"),

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "farmledger"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: 60000,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	var err error
	if config.DedupWindow, err = parseDurationEnv("DEDUP_WINDOW", config.DedupWindow); err != nil {
		return nil, err
	}
	if config.AccrualPeriod, err = parseDurationEnv("ACCRUAL_PERIOD", config.AccrualPeriod); err != nil {
		return nil, err
	}
	if config.ReconcileInterval, err = parseDurationEnv("RECONCILE_INTERVAL", config.ReconcileInterval); err != nil {
		return nil, err
	}

	if v := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); v != "" {
		interval, err := strconv.Atoi(v)
		if err != nil || interval <= 0 {
			return nil, fmt.Errorf("OTEL_EXPORT_INTERVAL_MS must be a positive integer, got %q", v)
		}
		config.OTelExportIntervalMillis = interval
	}

	if v := os.Getenv("MAX_CATCHUP_WINDOWS"); v != "" {
		windows, err := strconv.ParseInt(v, 10, 64)
		if err != nil || windows <= 0 {
			return nil, fmt.Errorf("MAX_CATCHUP_WINDOWS must be a positive integer, got %q", v)
		}
		config.MaxCatchUpWindows = windows
	}

	if v := os.Getenv("REFERRAL_MAX_LEVEL"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil || level <= 0 {
			return nil, fmt.Errorf("REFERRAL_MAX_LEVEL must be a positive integer, got %q", v)
		}
		config.ReferralMaxLevel = level
	}

	if v := os.Getenv("REFERRAL_MIN_PAYOUT"); v != "" {
		minPayout, err := decimal.NewFromString(v)
		if err != nil || minPayout.IsNegative() {
			return nil, fmt.Errorf("REFERRAL_MIN_PAYOUT must be a non-negative decimal, got %q", v)
		}
		config.ReferralMinPayout = minPayout
	}

	rates, err := parseRates(getEnvWithDefault("REFERRAL_RATES", "0.05,0.02,0.01"))
	if err != nil {
		return nil, err
	}
	config.ReferralRates = rates

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// parseRates parses a comma-separated list of per-level commission fractions
func parseRates(raw string) ([]decimal.Decimal, error) {
	var rates []decimal.Decimal
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rate, err := decimal.NewFromString(part)
		if err != nil || rate.IsNegative() {
			return nil, fmt.Errorf("REFERRAL_RATES entry %q is not a non-negative decimal", part)
		}
		rates = append(rates, rate)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("REFERRAL_RATES must contain at least one rate")
	}
	return rates, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:       "test",
		DedupWindow:       10 * time.Minute,
		AccrualPeriod:     5 * time.Minute,
		MaxCatchUpWindows: 288,
		ReferralRates: []decimal.Decimal{
			decimal.RequireFromString("0.05"),
			decimal.RequireFromString("0.02"),
			decimal.RequireFromString("0.01"),
		},
		ReferralMaxLevel:  20,
		ReferralMinPayout: decimal.RequireFromString("0.000001"),
		ReconcileInterval: 24 * time.Hour,
		OTelServiceName:   "farmledger-test",
		OTelExporterType:  "none",
	}
}
