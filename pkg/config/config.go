package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Delivery engine configuration
	Engine EngineConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Optional path to a YAML event catalog. Empty means the built-in
	// catalog is used.
	CatalogPath string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// EngineConfig holds webhook delivery engine configuration
type EngineConfig struct {
	Workers         int
	QueueCapacity   int
	PromoteInterval time.Duration
	DeliveryTimeout time.Duration
	HistorySize     int
	HistoryTTL      time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string
	LogJSON  bool

	// Metrics
	MetricsEnabled bool

	// Cron expression for the periodic system stats log line.
	// Empty disables the snapshot.
	StatsLogSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Engine:        loadEngineConfig(),
		Observability: loadObservabilityConfig(),
		CatalogPath:   getEnv("GATEWATCH_CATALOG_PATH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("GATEWATCH_HOST", "0.0.0.0"),
		Port:            getEnv("GATEWATCH_PORT", "8080"),
		ReadTimeout:     getEnvDuration("GATEWATCH_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GATEWATCH_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("GATEWATCH_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GATEWATCH_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("GATEWATCH_HEALTH_PORT", "9090"),
	}
}

// loadEngineConfig loads delivery engine configuration from environment
func loadEngineConfig() EngineConfig {
	return EngineConfig{
		Workers:         getEnvInt("GATEWATCH_WORKERS", 4),
		QueueCapacity:   getEnvInt("GATEWATCH_QUEUE_CAPACITY", 256),
		PromoteInterval: getEnvDuration("GATEWATCH_PROMOTE_INTERVAL", time.Second),
		DeliveryTimeout: getEnvDuration("GATEWATCH_DELIVERY_TIMEOUT", 30*time.Second),
		HistorySize:     getEnvInt("GATEWATCH_HISTORY_SIZE", 1000),
		HistoryTTL:      getEnvDuration("GATEWATCH_HISTORY_TTL", 24*time.Hour),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:         getEnv("GATEWATCH_LOG_LEVEL", "info"),
		LogJSON:          getEnvBool("GATEWATCH_LOG_JSON", true),
		MetricsEnabled:   getEnvBool("GATEWATCH_METRICS_ENABLED", true),
		StatsLogSchedule: getEnv("GATEWATCH_STATS_LOG_SCHEDULE", "0 * * * *"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Engine.Workers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.Engine.Workers)
	}
	if c.Engine.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive, got %d", c.Engine.QueueCapacity)
	}
	if c.Engine.PromoteInterval <= 0 {
		return fmt.Errorf("promote interval must be positive, got %v", c.Engine.PromoteInterval)
	}
	if c.Engine.DeliveryTimeout <= 0 {
		return fmt.Errorf("delivery timeout must be positive, got %v", c.Engine.DeliveryTimeout)
	}

	if c.CatalogPath != "" {
		if _, err := os.Stat(c.CatalogPath); err != nil {
			return fmt.Errorf("event catalog path: %w", err)
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
