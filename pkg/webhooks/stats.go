package webhooks

import "time"

// SystemStats aggregates engine-wide delivery health, derived from the
// registry, the active queue and the retry scheduler.
type SystemStats struct {
	TotalWebhooks        int           `json:"total_webhooks"`
	ActiveWebhooks       int           `json:"active_webhooks"`
	TotalEvents          int64         `json:"total_events"`
	SuccessfulDeliveries int64         `json:"successful_deliveries"`
	FailedDeliveries     int64         `json:"failed_deliveries"`
	QueueDepth           int           `json:"queue_depth"`
	RetryPending         int           `json:"retry_pending"`
	RetainedDeliveries   int           `json:"retained_deliveries"`
	AverageResponseTime  time.Duration `json:"average_response_time"`
}

// WebhookStats returns the stored stats for a single webhook.
func (e *Engine) WebhookStats(id string) (Stats, error) {
	webhook, err := e.registry.Get(id)
	if err != nil {
		return Stats{}, err
	}
	return webhook.Stats, nil
}

// SystemStats returns a point-in-time aggregation across all webhooks.
// The average is the mean of per-webhook average response times.
func (e *Engine) SystemStats() SystemStats {
	total, active, events, successes, failures, meanResponse := e.registry.summarize()
	return SystemStats{
		TotalWebhooks:        total,
		ActiveWebhooks:       active,
		TotalEvents:          events,
		SuccessfulDeliveries: successes,
		FailedDeliveries:     failures,
		QueueDepth:           len(e.queue),
		RetryPending:         e.scheduler.Len(),
		RetainedDeliveries:   e.history.Len(),
		AverageResponseTime:  meanResponse,
	}
}
