// Package webhooks implements the event-delivery engine: webhook
// registration, event fan-out, filter evaluation, payload
// transformation, signed HTTP delivery, and retry scheduling with
// bounded backoff.
//
// # Usage Example
//
// Register a webhook:
//
//	webhook, err := engine.Register(webhooks.Config{
//		ID:     "attendance-sync",
//		URL:    "https://api.example.com/hooks/gatewatch",
//		Events: []string{"entry.recorded", "exit.recorded"},
//		Secret: "webhook-secret",
//		Filters: map[string]any{
//			"data.severity": map[string]any{"$gte": 5},
//		},
//	})
//
// Emit an event (fire-and-forget; delivery is asynchronous):
//
//	event, err := engine.Emit(ctx, "entry.recorded", map[string]any{
//		"student_id": studentID,
//		"gate":       "north",
//	}, nil)
//
// Verify a signature (receiver side):
//
//	sig := r.Header.Get("X-Gatewatch-Signature")
//	if !webhooks.VerifySignature(body, sig, secret) {
//		return errors.New("invalid signature")
//	}
//
// # Delivery Semantics
//
// Each matching, filter-passing, active webhook gets exactly one
// Delivery per event, attempted at least once. Failures back off per
// the webhook's retry policy (default 1s, 5s, 30s, capped at 5m) until
// retries are exhausted, then the delivery is marked permanently
// failed. No ordering is guaranteed between deliveries. All delivery
// state is in-memory and lost on restart; durable history belongs to
// an external store.
package webhooks
