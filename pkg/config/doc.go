// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	GATEWATCH_HOST="0.0.0.0"
//	GATEWATCH_PORT="8080"
//	GATEWATCH_HEALTH_PORT="9090"
//	GATEWATCH_READ_TIMEOUT="15s"
//	GATEWATCH_WRITE_TIMEOUT="15s"
//	GATEWATCH_SHUTDOWN_TIMEOUT="30s"
//
// Delivery engine settings:
//
//	GATEWATCH_WORKERS="4"
//	GATEWATCH_QUEUE_CAPACITY="256"
//	GATEWATCH_PROMOTE_INTERVAL="1s"
//	GATEWATCH_DELIVERY_TIMEOUT="30s"
//	GATEWATCH_HISTORY_SIZE="1000"
//	GATEWATCH_HISTORY_TTL="24h"
//
// Event catalog:
//
//	GATEWATCH_CATALOG_PATH="/etc/gatewatch/events.yaml"  # optional
//
// Observability settings:
//
//	GATEWATCH_LOG_LEVEL="info"  # debug, info, warn, error
//	GATEWATCH_LOG_JSON="true"
//	GATEWATCH_METRICS_ENABLED="true"
//	GATEWATCH_STATS_LOG_SCHEDULE="0 * * * *"  # cron, empty disables
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Workers: %d\n", cfg.Engine.Workers)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/webhooks: Uses engine configuration
//   - pkg/observability: Uses observability configuration
package config
