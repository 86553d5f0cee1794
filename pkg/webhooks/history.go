package webhooks

import (
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// History is a bounded record of deliveries for introspection, backed
// by an expirable LRU so retention is capped by both entry count and
// age. Entries are snapshots, so later mutation of a delivery by its
// owner is invisible to readers. Terminal deliveries eventually age
// out; durable delivery history belongs to an external store.
type History struct {
	cache *lru.LRU[string, *Delivery]
}

// NewHistory creates a delivery history with the given capacity and
// TTL. Non-positive values fall back to 1000 entries and 24h.
func NewHistory(capacity int, ttl time.Duration) *History {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &History{
		cache: lru.NewLRU[string, *Delivery](capacity, nil, ttl),
	}
}

// Add records the delivery's current state. Re-adding the same id
// replaces the previous snapshot.
func (h *History) Add(d *Delivery) {
	h.cache.Add(d.ID, d.snapshot())
}

// Get retrieves a delivery snapshot by id.
func (h *History) Get(id string) (*Delivery, bool) {
	d, ok := h.cache.Get(id)
	if !ok {
		return nil, false
	}
	return d.snapshot(), true
}

// ByWebhook returns delivery snapshots for a webhook, most recently
// queued first, up to limit (0 means no limit).
func (h *History) ByWebhook(webhookID string, limit int) []*Delivery {
	var result []*Delivery
	for _, d := range h.cache.Values() {
		if d.WebhookID == webhookID {
			result = append(result, d.snapshot())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].QueuedAt.After(result[j].QueuedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Len returns the number of retained deliveries.
func (h *History) Len() int {
	return h.cache.Len()
}
