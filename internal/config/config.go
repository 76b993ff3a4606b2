package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig
	Remote   RemoteConfig
	Payments PaymentsConfig
	Offline  OfflineConfig
	Server   ServerConfig
	Logger   LoggerConfig
}

// StorageConfig holds the embedded key-value store configuration
type StorageConfig struct {
	Path string // path to the BoltDB file
}

// RemoteConfig holds the catalog and order service endpoints
type RemoteConfig struct {
	CatalogBaseURL string
	OrdersBaseURL  string
	OrgID          string
	AuthToken      string
}

// PaymentsConfig holds transaction processing configuration
type PaymentsConfig struct {
	Currency     string
	CreateOrders bool // order-based processing; false takes the direct path
	OrderNote    string
}

// OfflineConfig holds offline-queue polling configuration
type OfflineConfig struct {
	PollInterval time.Duration
}

// ServerConfig holds the HTTP server configuration: the kiosk-facing API
// and the metrics/health endpoint.
type ServerConfig struct {
	HTTPPort    int
	MetricsPort int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Path: getEnv("STORAGE_PATH", "donation-engine.db"),
		},
		Remote: RemoteConfig{
			CatalogBaseURL: getEnv("CATALOG_BASE_URL", ""),
			OrdersBaseURL:  getEnv("ORDERS_BASE_URL", ""),
			OrgID:          getEnv("ORG_ID", ""),
			AuthToken:      getEnv("AUTH_TOKEN", ""),
		},
		Payments: PaymentsConfig{
			Currency:     getEnv("CURRENCY", "USD"),
			CreateOrders: getEnvAsBool("CREATE_ORDERS", true),
			OrderNote:    getEnv("ORDER_NOTE", "Kiosk donation"),
		},
		Offline: OfflineConfig{
			PollInterval: getEnvAsDuration("OFFLINE_POLL_INTERVAL", 30*time.Second),
		},
		Server: ServerConfig{
			HTTPPort:    getEnvAsInt("HTTP_PORT", 8080),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Remote.CatalogBaseURL == "" {
		return nil, fmt.Errorf("CATALOG_BASE_URL is required")
	}
	if cfg.Remote.OrdersBaseURL == "" {
		return nil, fmt.Errorf("ORDERS_BASE_URL is required")
	}
	if cfg.Remote.OrgID == "" {
		return nil, fmt.Errorf("ORG_ID is required")
	}
	if cfg.Remote.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_TOKEN is required")
	}
	if cfg.Offline.PollInterval <= 0 {
		return nil, fmt.Errorf("OFFLINE_POLL_INTERVAL must be positive")
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
