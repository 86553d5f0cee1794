package webhooks

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatewatch/gatewatch/pkg/events"
)

// DeliveryStatus represents the state of a delivery.
type DeliveryStatus string

const (
	DeliveryQueued            DeliveryStatus = "queued"
	DeliveryDelivering        DeliveryStatus = "delivering"
	DeliveryDelivered         DeliveryStatus = "delivered"
	DeliveryFailed            DeliveryStatus = "failed"
	DeliveryRetryScheduled    DeliveryStatus = "retry-scheduled"
	DeliveryFailedPermanently DeliveryStatus = "failed-permanently"
)

// Terminal reports whether the status can never transition again.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryFailedPermanently
}

// Response records the endpoint's answer to a successful delivery.
type Response struct {
	Status       int               `json:"status"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         string            `json:"body,omitempty"`
	ResponseTime time.Duration     `json:"response_time"`
}

// Delivery is one attempted transmission of one Event to one Webhook.
// A Delivery has a single owner at any time (queue, worker, or retry
// scheduler), so its fields need no locking: the webhook snapshot is
// taken at enqueue time and the event is shared read-only.
// Introspection never sees the live record; the owner publishes a
// snapshot to the history at every state transition.
type Delivery struct {
	ID        string         `json:"id"`
	WebhookID string         `json:"webhook_id"`
	Webhook   *Webhook       `json:"-"`
	Event     *events.Event  `json:"event"`
	Attempt   int            `json:"attempt"`
	Status    DeliveryStatus `json:"status"`
	QueuedAt  time.Time      `json:"queued_at"`
	// DeliveredAt records the timestamp of the most recent send.
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	RetryAt     *time.Time     `json:"retry_at,omitempty"`
	Response    *Response      `json:"response,omitempty"`
	Error       *DeliveryError `json:"error,omitempty"`
}

func newDelivery(webhook *Webhook, event *events.Event) *Delivery {
	return &Delivery{
		ID:        uuid.NewString(),
		WebhookID: webhook.ID,
		Webhook:   webhook,
		Event:     event,
		Attempt:   0,
		Status:    DeliveryQueued,
		QueuedAt:  time.Now().UTC(),
	}
}

// snapshot copies the delivery so it can be read outside the owning
// goroutine. Response and Error are assigned once per attempt and never
// mutated afterwards, so sharing the pointed-to values is safe.
func (d *Delivery) snapshot() *Delivery {
	c := *d
	if d.DeliveredAt != nil {
		t := *d.DeliveredAt
		c.DeliveredAt = &t
	}
	if d.RetryAt != nil {
		t := *d.RetryAt
		c.RetryAt = &t
	}
	return &c
}
