package webhooks

import (
	"math"
	"time"
)

// Status represents whether a webhook receives deliveries.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// RetryPolicy controls backoff between failed delivery attempts.
type RetryPolicy struct {
	MaxRetries        int             `json:"max_retries"`
	Delays            []time.Duration `json:"delays"`
	BackoffMultiplier float64         `json:"backoff_multiplier"`
	MaxDelay          time.Duration   `json:"max_delay"`
}

// DefaultRetryPolicy returns the retry policy applied when a webhook is
// registered without one.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		Delays:            []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
		BackoffMultiplier: 1,
		MaxDelay:          5 * time.Minute,
	}
}

// NextDelay returns the delay before the retry following the given
// failed attempt (attempt counts sends, starting at 1). The delay grows
// with the backoff multiplier and never exceeds MaxDelay.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delays := p.Delays
	if len(delays) == 0 {
		delays = DefaultRetryPolicy().Delays
	}
	idx := attempt - 1
	if idx >= len(delays) {
		idx = len(delays) - 1
	}

	multiplier := p.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	delay := time.Duration(float64(delays[idx]) * math.Pow(multiplier, float64(attempt-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Stats accumulates per-webhook delivery counters. Mutated only by the
// registry while holding its lock.
type Stats struct {
	TotalEvents          int64         `json:"total_events"`
	SuccessfulDeliveries int64         `json:"successful_deliveries"`
	FailedDeliveries     int64         `json:"failed_deliveries"`
	LastDelivery         *time.Time    `json:"last_delivery,omitempty"`
	AverageResponseTime  time.Duration `json:"average_response_time"`
}

// Webhook represents a registered delivery target.
type Webhook struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Events          []string          `json:"events"`
	Secret          string            `json:"secret,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	Filters         FilterSet         `json:"-"`
	Transformations TransformSet      `json:"-"`
	RetryPolicy     RetryPolicy       `json:"retry_policy"`
	Status          Status            `json:"status"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Stats           Stats             `json:"stats"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Subscribed reports whether the webhook subscribes to the event type.
func (w *Webhook) Subscribed(eventType string) bool {
	for _, t := range w.Events {
		if t == eventType {
			return true
		}
	}
	return false
}

// clone returns a copy safe to hand outside the registry lock. Parsed
// filter and transform sets are immutable and shared.
func (w *Webhook) clone() *Webhook {
	c := *w
	c.Events = append([]string(nil), w.Events...)
	c.RetryPolicy.Delays = append([]time.Duration(nil), w.RetryPolicy.Delays...)
	if w.Headers != nil {
		c.Headers = make(map[string]string, len(w.Headers))
		for k, v := range w.Headers {
			c.Headers[k] = v
		}
	}
	if w.Metadata != nil {
		c.Metadata = make(map[string]string, len(w.Metadata))
		for k, v := range w.Metadata {
			c.Metadata[k] = v
		}
	}
	if w.Stats.LastDelivery != nil {
		t := *w.Stats.LastDelivery
		c.Stats.LastDelivery = &t
	}
	return &c
}

// Config is the registration input for a webhook. Filter and transform
// specifications are parsed and validated at registration time.
type Config struct {
	ID              string             `json:"id"`
	URL             string             `json:"url"`
	Events          []string           `json:"events"`
	Secret          string             `json:"secret,omitempty"`
	Headers         map[string]string  `json:"headers,omitempty"`
	Filters         map[string]any     `json:"filters,omitempty"`
	Transformations map[string]any     `json:"transformations,omitempty"`
	RetryPolicy     *RetryPolicyConfig `json:"retry_policy,omitempty"`
	Metadata        map[string]string  `json:"metadata,omitempty"`
}

// RetryPolicyConfig is the wire form of a retry policy. Delays use
// time.ParseDuration syntax ("5s", "2m30s").
type RetryPolicyConfig struct {
	MaxRetries        *int     `json:"max_retries,omitempty"`
	Delays            []string `json:"delays,omitempty"`
	BackoffMultiplier *float64 `json:"backoff_multiplier,omitempty"`
	MaxDelay          string   `json:"max_delay,omitempty"`
}

func parseRetryPolicy(cfg *RetryPolicyConfig) (RetryPolicy, error) {
	policy := DefaultRetryPolicy()
	if cfg == nil {
		return policy, nil
	}

	if cfg.MaxRetries != nil {
		if *cfg.MaxRetries < 0 {
			return policy, configErrorf("retry_policy.max_retries", "must not be negative, got %d", *cfg.MaxRetries)
		}
		policy.MaxRetries = *cfg.MaxRetries
	}
	if len(cfg.Delays) > 0 {
		delays := make([]time.Duration, 0, len(cfg.Delays))
		for _, raw := range cfg.Delays {
			d, err := time.ParseDuration(raw)
			if err != nil || d < 0 {
				return policy, configErrorf("retry_policy.delays", "invalid duration %q", raw)
			}
			delays = append(delays, d)
		}
		policy.Delays = delays
	}
	if cfg.BackoffMultiplier != nil {
		if *cfg.BackoffMultiplier <= 0 {
			return policy, configErrorf("retry_policy.backoff_multiplier", "must be positive, got %v", *cfg.BackoffMultiplier)
		}
		policy.BackoffMultiplier = *cfg.BackoffMultiplier
	}
	if cfg.MaxDelay != "" {
		d, err := time.ParseDuration(cfg.MaxDelay)
		if err != nil || d <= 0 {
			return policy, configErrorf("retry_policy.max_delay", "invalid duration %q", cfg.MaxDelay)
		}
		policy.MaxDelay = d
	}
	return policy, nil
}
