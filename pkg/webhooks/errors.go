package webhooks

import (
	"errors"
	"fmt"
)

// ErrWebhookNotFound is returned when an operation references an
// unknown webhook id.
var ErrWebhookNotFound = errors.New("webhook not found")

// ErrEngineStopped is returned when an operation is attempted after the
// engine has shut down.
var ErrEngineStopped = errors.New("webhook engine stopped")

// ConfigError reports malformed registration input. It is returned
// synchronously from Register/Update and nothing is enqueued.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid webhook configuration: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ErrorKind classifies a delivery failure.
type ErrorKind string

const (
	// ErrorKindNetwork covers connection, DNS and timeout failures.
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindHTTP covers responses with status >= 300.
	ErrorKindHTTP ErrorKind = "http"
)

// DeliveryError describes a failed delivery attempt. Both kinds are
// retryable up to the webhook's retry policy.
type DeliveryError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Status and Body are populated for ErrorKindHTTP and preserved
	// for diagnostics.
	Status int    `json:"response_status,omitempty"`
	Body   string `json:"response_body,omitempty"`
}

func (e *DeliveryError) Error() string {
	if e.Kind == ErrorKindHTTP {
		return fmt.Sprintf("delivery failed: endpoint returned status %d", e.Status)
	}
	return fmt.Sprintf("delivery failed: %s", e.Message)
}

func networkError(err error) *DeliveryError {
	return &DeliveryError{Kind: ErrorKindNetwork, Message: err.Error()}
}

func httpError(status int, body string) *DeliveryError {
	return &DeliveryError{
		Kind:    ErrorKindHTTP,
		Message: fmt.Sprintf("endpoint returned status %d", status),
		Status:  status,
		Body:    body,
	}
}
