package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/gatewatch/gatewatch/pkg/events"
	"github.com/gatewatch/gatewatch/pkg/observability"
)

// maxResponseBody caps how much of an endpoint's response is retained
// for diagnostics.
const maxResponseBody = 8 << 10

// Options configures the delivery engine.
type Options struct {
	Workers         int
	QueueCapacity   int
	PromoteInterval time.Duration
	DeliveryTimeout time.Duration
	HistorySize     int
	HistoryTTL      time.Duration
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Workers:         4,
		QueueCapacity:   1024,
		PromoteInterval: 1 * time.Second,
		DeliveryTimeout: 10 * time.Second,
		HistorySize:     1000,
		HistoryTTL:      24 * time.Hour,
	}
}

// Engine is the webhook delivery engine: it owns the registry, the
// active delivery queue, the retry scheduler, and the worker pool that
// performs signed outbound HTTP deliveries.
//
// Emission is fire-and-forget: Emit never blocks on delivery and no
// delivery error ever propagates back to the emitting caller. No
// ordering is guaranteed between deliveries, even for the same webhook.
type Engine struct {
	registry  *Registry
	scheduler *Scheduler
	history   *History
	catalog   *events.Catalog
	queue     chan *Delivery
	client    *http.Client
	log       *logrus.Logger
	metrics   *observability.Metrics
	opts      Options

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// NewEngine creates a delivery engine. The catalog may be nil to skip
// event type validation; a nil logger or metrics falls back to private
// instances.
func NewEngine(opts Options, catalog *events.Catalog, log *logrus.Logger, metrics *observability.Metrics) *Engine {
	defaults := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = defaults.QueueCapacity
	}
	if opts.PromoteInterval <= 0 {
		opts.PromoteInterval = defaults.PromoteInterval
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = defaults.DeliveryTimeout
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaults.HistorySize
	}
	if opts.HistoryTTL <= 0 {
		opts.HistoryTTL = defaults.HistoryTTL
	}

	if log == nil {
		log = logrus.New()
	}
	if metrics == nil {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	return &Engine{
		registry:  NewRegistry(log),
		scheduler: NewScheduler(),
		history:   NewHistory(opts.HistorySize, opts.HistoryTTL),
		catalog:   catalog,
		queue:     make(chan *Delivery, opts.QueueCapacity),
		client:    &http.Client{Timeout: opts.DeliveryTimeout},
		log:       log,
		metrics:   metrics,
		opts:      opts,
	}
}

// Start launches the delivery workers and the retry promotion driver.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)
	for i := 0; i < e.opts.Workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx, i)
	}
	e.wg.Add(1)
	go e.promoteLoop(ctx)

	e.log.WithFields(logrus.Fields{
		"workers":        e.opts.Workers,
		"queue_capacity": e.opts.QueueCapacity,
	}).Info("webhook engine started")
}

// Stop cancels the workers and waits for in-flight deliveries to
// settle. In-flight HTTP calls are bounded by the delivery timeout.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	e.log.Info("webhook engine stopped")
}

func (e *Engine) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// Registry exposes the webhook registry for direct inspection.
func (e *Engine) Registry() *Registry { return e.registry }

// Catalog returns the event type catalog, which may be nil.
func (e *Engine) Catalog() *events.Catalog { return e.catalog }

// Register validates and stores a webhook configuration.
func (e *Engine) Register(cfg Config) (*Webhook, error) {
	webhook, err := e.registry.Register(cfg)
	if err != nil {
		return nil, err
	}
	e.updateWebhookGauges()
	return webhook, nil
}

// Unregister removes a webhook and reports whether one existed.
func (e *Engine) Unregister(id string) bool {
	existed := e.registry.Unregister(id)
	e.updateWebhookGauges()
	return existed
}

// Update merges a partial configuration over an existing webhook.
func (e *Engine) Update(id string, partial Config) (*Webhook, error) {
	return e.registry.Update(id, partial)
}

// Get retrieves a webhook by id.
func (e *Engine) Get(id string) (*Webhook, error) { return e.registry.Get(id) }

// List returns all registered webhooks.
func (e *Engine) List() []*Webhook { return e.registry.List() }

// SetStatus activates or disables a webhook.
func (e *Engine) SetStatus(id string, status Status) (*Webhook, error) {
	webhook, err := e.registry.SetStatus(id, status)
	if err != nil {
		return nil, err
	}
	e.updateWebhookGauges()
	return webhook, nil
}

// Emit constructs an immutable Event and fans it out to every active
// webhook subscribed to the event type whose filters pass, creating one
// queued Delivery each. Zero matching webhooks is not an error, and
// delivery failures are never reported to the caller.
func (e *Engine) Emit(ctx context.Context, eventType string, data, metadata map[string]any) (*events.Event, error) {
	if eventType == "" {
		return nil, errors.New("event type is required")
	}
	if e.isStopped() {
		return nil, ErrEngineStopped
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	event := events.New(eventType, data, metadata)
	if e.catalog != nil && !e.catalog.Contains(eventType) {
		e.log.WithField("event_type", eventType).Warn("event type not in catalog")
	}
	e.metrics.EventsEmitted.Inc()

	for _, webhook := range e.registry.Matching(eventType) {
		if !webhook.Filters.Matches(event) {
			continue
		}
		d := newDelivery(webhook, event)
		e.enqueue(d)
		e.metrics.DeliveriesQueued.Inc()
		e.log.WithFields(logrus.Fields{
			"event_id":    event.ID,
			"event_type":  eventType,
			"webhook_id":  webhook.ID,
			"delivery_id": d.ID,
		}).Debug("delivery queued")
	}

	return event, nil
}

// TestWebhook synthesizes a webhook.test event and sends it through the
// delivery path synchronously, bypassing filters. Test deliveries are
// single-shot: they are never scheduled for retry and do not count
// toward webhook stats or delivery history.
func (e *Engine) TestWebhook(ctx context.Context, id string) (*Delivery, error) {
	webhook, err := e.registry.Get(id)
	if err != nil {
		return nil, err
	}

	event := events.New(events.EventWebhookTest, map[string]any{"webhook_id": id}, map[string]any{"test": true})
	d := newDelivery(webhook, event)
	d.Status = DeliveryDelivering
	d.Attempt = 1
	now := time.Now().UTC()
	d.DeliveredAt = &now

	resp, derr := e.send(ctx, d)
	if derr != nil {
		d.Status = DeliveryFailed
		d.Error = derr
		return d, nil
	}
	d.Status = DeliveryDelivered
	d.Response = resp
	return d, nil
}

// Delivery retrieves a delivery snapshot from the history by id.
func (e *Engine) Delivery(id string) (*Delivery, bool) {
	return e.history.Get(id)
}

// Deliveries returns snapshots of the retained deliveries for a
// webhook, most recent first.
func (e *Engine) Deliveries(webhookID string, limit int) []*Delivery {
	return e.history.ByWebhook(webhookID, limit)
}

// enqueue places a delivery on the active queue. When the queue is
// full the delivery is parked in the scheduler's overflow list and
// promoted on the next driver tick, so callers never block. The
// history snapshot is taken before the handoff, while this goroutine
// still owns the delivery.
func (e *Engine) enqueue(d *Delivery) {
	d.Status = DeliveryQueued
	e.history.Add(d)
	select {
	case e.queue <- d:
		e.metrics.QueueDepth.Set(float64(len(e.queue)))
	default:
		e.scheduler.Defer(d)
		e.metrics.RetryPending.Set(float64(e.scheduler.Len()))
	}
}

func (e *Engine) worker(ctx context.Context, id int) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-e.queue:
			e.metrics.QueueDepth.Set(float64(len(e.queue)))
			e.process(ctx, d)
		}
	}
}

// process runs one delivery attempt with panic isolation so a bad
// payload cannot take down the worker.
func (e *Engine) process(ctx context.Context, d *Delivery) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(logrus.Fields{
				"delivery_id": d.ID,
				"panic":       r,
			}).Errorf("panic during delivery\n%s", debug.Stack())
		}
	}()
	e.deliver(ctx, d)
}

// promoteLoop is the periodic driver: every tick it moves deliveries
// whose retry timer has elapsed (plus queue overflow) back onto the
// active queue.
func (e *Engine) promoteLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.opts.PromoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, d := range e.scheduler.Due(time.Now()) {
				d.RetryAt = nil
				e.enqueue(d)
			}
			e.metrics.RetryPending.Set(float64(e.scheduler.Len()))
		}
	}
}

// deliver performs one send attempt and routes the outcome: terminal
// success, retry scheduling, or permanent failure.
func (e *Engine) deliver(ctx context.Context, d *Delivery) {
	if d.Status.Terminal() {
		return
	}

	d.Status = DeliveryDelivering
	d.Attempt++
	now := time.Now().UTC()
	d.DeliveredAt = &now
	e.history.Add(d)

	resp, derr := e.send(ctx, d)
	if derr == nil {
		d.Status = DeliveryDelivered
		d.Response = resp
		d.Error = nil
		e.history.Add(d)
		e.registry.recordSuccess(d.WebhookID, resp.ResponseTime, now)
		e.metrics.DeliveriesTotal.WithLabelValues(string(DeliveryDelivered)).Inc()
		e.metrics.DeliveryDuration.Observe(resp.ResponseTime.Seconds())
		e.log.WithFields(logrus.Fields{
			"delivery_id": d.ID,
			"webhook_id":  d.WebhookID,
			"attempt":     d.Attempt,
			"status":      resp.Status,
		}).Debug("delivery succeeded")
		return
	}

	d.Status = DeliveryFailed
	d.Error = derr
	e.registry.recordFailure(d.WebhookID)
	e.metrics.DeliveriesTotal.WithLabelValues(string(DeliveryFailed)).Inc()
	e.scheduleRetry(d)
}

// scheduleRetry transitions a failed delivery to retry-scheduled with
// backoff, or to failed-permanently once retries are exhausted.
func (e *Engine) scheduleRetry(d *Delivery) {
	policy := d.Webhook.RetryPolicy
	if d.Attempt > policy.MaxRetries {
		d.Status = DeliveryFailedPermanently
		e.history.Add(d)
		e.metrics.DeliveriesTotal.WithLabelValues(string(DeliveryFailedPermanently)).Inc()
		e.log.WithFields(logrus.Fields{
			"delivery_id": d.ID,
			"webhook_id":  d.WebhookID,
			"attempt":     d.Attempt,
			"error":       d.Error.Error(),
		}).Warn("delivery failed permanently")
		return
	}

	delay := policy.NextDelay(d.Attempt)
	retryAt := time.Now().UTC().Add(delay)
	d.Status = DeliveryRetryScheduled
	d.RetryAt = &retryAt
	e.history.Add(d)
	e.log.WithFields(logrus.Fields{
		"delivery_id": d.ID,
		"webhook_id":  d.WebhookID,
		"attempt":     d.Attempt,
		"retry_in":    delay.String(),
		"error":       d.Error.Error(),
	}).Warn("delivery failed, retry scheduled")
	e.scheduler.Schedule(d)
	e.metrics.RetriesScheduled.Inc()
	e.metrics.RetryPending.Set(float64(e.scheduler.Len()))
}

// send builds the outbound payload, signs it, and performs the HTTP
// POST. A status outside [200,300) or any transport error is a failure.
func (e *Engine) send(ctx context.Context, d *Delivery) (*Response, *DeliveryError) {
	event := d.Event
	payload := map[string]any{
		"id":       event.ID,
		"type":     event.Type,
		"created":  event.CreatedAt.UTC().Format(time.RFC3339),
		"data":     d.Webhook.Transformations.Apply(event),
		"metadata": event.Metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, networkError(fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Webhook.URL, bytes.NewReader(body))
	if err != nil {
		return nil, networkError(err)
	}

	for k, v := range d.Webhook.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Gatewatch-Event", event.Type)
	req.Header.Set("X-Gatewatch-Delivery", d.ID)
	req.Header.Set("X-Gatewatch-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	if signature := Sign(body, d.Webhook.Secret); signature != "" {
		req.Header.Set("X-Gatewatch-Signature", signature)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	elapsed := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError(resp.StatusCode, string(respBody))
	}

	headers := make(map[string]string, len(resp.Header))
	for k, values := range resp.Header {
		if len(values) > 0 {
			headers[k] = values[0]
		}
	}
	return &Response{
		Status:       resp.StatusCode,
		Headers:      headers,
		Body:         string(respBody),
		ResponseTime: elapsed,
	}, nil
}

func (e *Engine) updateWebhookGauges() {
	total, active, _, _, _, _ := e.registry.summarize()
	e.metrics.WebhooksRegistered.Set(float64(total))
	e.metrics.WebhooksActive.Set(float64(active))
}
