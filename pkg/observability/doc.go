// Package observability provides the structured logger and Prometheus
// metrics shared across the service.
//
// Metrics are registered on a private registry and exposed via
// RegisterMetricsEndpoint on the health listener. The logger is a
// logrus instance configured from the service configuration.
package observability
