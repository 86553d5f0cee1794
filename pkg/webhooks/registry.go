package webhooks

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Default headers merged under caller-supplied headers; the caller wins
// on conflict.
const (
	defaultContentType = "application/json"
	defaultUserAgent   = "gatewatch/1.0"
)

// Registry owns the set of registered webhooks. Registration, updates
// and stats recording execute concurrently with delivery workers, so
// every access goes through the registry lock; reads hand out clones.
type Registry struct {
	mu       sync.RWMutex
	webhooks map[string]*Webhook
	log      *logrus.Logger
}

// NewRegistry creates an empty webhook registry.
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{
		webhooks: make(map[string]*Webhook),
		log:      log,
	}
}

// Register validates and stores a webhook. Registering an id that
// already exists overwrites the previous entry (idempotent
// re-registration); stats start from zero.
func (r *Registry) Register(cfg Config) (*Webhook, error) {
	if cfg.ID == "" {
		return nil, configErrorf("id", "is required")
	}
	if cfg.URL == "" {
		return nil, configErrorf("url", "is required")
	}
	if len(cfg.Events) == 0 {
		return nil, configErrorf("events", "at least one event type is required")
	}

	filters, err := ParseFilterSet(cfg.Filters)
	if err != nil {
		return nil, configErrorf("filters", "%v", err)
	}
	transforms, err := ParseTransformSet(cfg.Transformations)
	if err != nil {
		return nil, configErrorf("transformations", "%v", err)
	}
	policy, err := parseRetryPolicy(cfg.RetryPolicy)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Content-Type": defaultContentType,
		"User-Agent":   defaultUserAgent,
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	now := time.Now().UTC()
	webhook := &Webhook{
		ID:              cfg.ID,
		URL:             cfg.URL,
		Events:          append([]string(nil), cfg.Events...),
		Secret:          cfg.Secret,
		Headers:         headers,
		Filters:         filters,
		Transformations: transforms,
		RetryPolicy:     policy,
		Status:          StatusActive,
		Metadata:        cfg.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	r.mu.Lock()
	r.webhooks[webhook.ID] = webhook
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"webhook_id":  webhook.ID,
		"url":         webhook.URL,
		"events":      len(webhook.Events),
		"filtered":    !webhook.Filters.Empty(),
		"transformed": !webhook.Transformations.Empty(),
	}).Info("webhook registered")

	return webhook.clone(), nil
}

// Unregister removes a webhook and reports whether one existed.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	_, existed := r.webhooks[id]
	delete(r.webhooks, id)
	r.mu.Unlock()

	if existed {
		r.log.WithField("webhook_id", id).Info("webhook unregistered")
	}
	return existed
}

// Update merges the non-zero fields of partial over the existing
// configuration. Stats are preserved; UpdatedAt is refreshed.
func (r *Registry) Update(id string, partial Config) (*Webhook, error) {
	var (
		filters       FilterSet
		transforms    TransformSet
		policy        RetryPolicy
		parsedFilters bool
		parsedTforms  bool
		parsedPolicy  bool
		err           error
	)
	if partial.Filters != nil {
		if filters, err = ParseFilterSet(partial.Filters); err != nil {
			return nil, configErrorf("filters", "%v", err)
		}
		parsedFilters = true
	}
	if partial.Transformations != nil {
		if transforms, err = ParseTransformSet(partial.Transformations); err != nil {
			return nil, configErrorf("transformations", "%v", err)
		}
		parsedTforms = true
	}
	if partial.RetryPolicy != nil {
		if policy, err = parseRetryPolicy(partial.RetryPolicy); err != nil {
			return nil, err
		}
		parsedPolicy = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	webhook, exists := r.webhooks[id]
	if !exists {
		return nil, ErrWebhookNotFound
	}

	if partial.URL != "" {
		webhook.URL = partial.URL
	}
	if len(partial.Events) > 0 {
		webhook.Events = append([]string(nil), partial.Events...)
	}
	if partial.Secret != "" {
		webhook.Secret = partial.Secret
	}
	if partial.Headers != nil {
		headers := map[string]string{
			"Content-Type": defaultContentType,
			"User-Agent":   defaultUserAgent,
		}
		for k, v := range partial.Headers {
			headers[k] = v
		}
		webhook.Headers = headers
	}
	if parsedFilters {
		webhook.Filters = filters
	}
	if parsedTforms {
		webhook.Transformations = transforms
	}
	if parsedPolicy {
		webhook.RetryPolicy = policy
	}
	if partial.Metadata != nil {
		webhook.Metadata = partial.Metadata
	}
	webhook.UpdatedAt = time.Now().UTC()

	return webhook.clone(), nil
}

// Get retrieves a webhook by id.
func (r *Registry) Get(id string) (*Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	webhook, exists := r.webhooks[id]
	if !exists {
		return nil, ErrWebhookNotFound
	}
	return webhook.clone(), nil
}

// List returns all registered webhooks sorted by id.
func (r *Registry) List() []*Webhook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Webhook, 0, len(r.webhooks))
	for _, webhook := range r.webhooks {
		result = append(result, webhook.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Matching returns active webhooks subscribed to the event type.
func (r *Registry) Matching(eventType string) []*Webhook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Webhook
	for _, webhook := range r.webhooks {
		if webhook.Status == StatusActive && webhook.Subscribed(eventType) {
			result = append(result, webhook.clone())
		}
	}
	return result
}

// SetStatus activates or disables a webhook.
func (r *Registry) SetStatus(id string, status Status) (*Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	webhook, exists := r.webhooks[id]
	if !exists {
		return nil, ErrWebhookNotFound
	}
	webhook.Status = status
	webhook.UpdatedAt = time.Now().UTC()
	return webhook.clone(), nil
}

// recordSuccess updates delivery counters after a successful send. The
// average response time uses the original unweighted (old+new)/2 blend.
func (r *Registry) recordSuccess(id string, responseTime time.Duration, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	webhook, exists := r.webhooks[id]
	if !exists {
		return
	}
	webhook.Stats.TotalEvents++
	webhook.Stats.SuccessfulDeliveries++
	webhook.Stats.LastDelivery = &at
	if webhook.Stats.AverageResponseTime == 0 {
		webhook.Stats.AverageResponseTime = responseTime
	} else {
		webhook.Stats.AverageResponseTime = (webhook.Stats.AverageResponseTime + responseTime) / 2
	}
}

// recordFailure updates delivery counters after a failed send.
func (r *Registry) recordFailure(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if webhook, exists := r.webhooks[id]; exists {
		webhook.Stats.FailedDeliveries++
	}
}

// summarize aggregates registry-wide counters for system stats.
func (r *Registry) summarize() (total, active int, events, successes, failures int64, meanResponse time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var responseSum time.Duration
	var responseCount int
	for _, webhook := range r.webhooks {
		total++
		if webhook.Status == StatusActive {
			active++
		}
		events += webhook.Stats.TotalEvents
		successes += webhook.Stats.SuccessfulDeliveries
		failures += webhook.Stats.FailedDeliveries
		if webhook.Stats.AverageResponseTime > 0 {
			responseSum += webhook.Stats.AverageResponseTime
			responseCount++
		}
	}
	if responseCount > 0 {
		meanResponse = responseSum / time.Duration(responseCount)
	}
	return
}
