package events

import (
	"time"

	"github.com/google/uuid"
)

// Event represents an immutable domain event submitted for webhook delivery.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// Default metadata values applied when the caller does not supply them.
const (
	DefaultSource        = "gatewatch"
	DefaultSchemaVersion = "1.0"
)

// New constructs an Event with a fresh ID and merged metadata. The
// caller's data and metadata maps are copied so later mutation by the
// caller does not leak into deliveries in flight.
func New(eventType string, data, metadata map[string]any) *Event {
	now := time.Now().UTC()

	merged := make(map[string]any, len(metadata)+3)
	for k, v := range metadata {
		merged[k] = v
	}
	if _, ok := merged["timestamp"]; !ok {
		merged["timestamp"] = now.Format(time.RFC3339)
	}
	if _, ok := merged["source"]; !ok {
		merged["source"] = DefaultSource
	}
	if _, ok := merged["schema_version"]; !ok {
		merged["schema_version"] = DefaultSchemaVersion
	}

	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}

	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      copied,
		Metadata:  merged,
		CreatedAt: now,
	}
}

// Field resolves a dot-separated path against the event. Top-level names
// are "id", "type", "created_at", "data" and "metadata"; paths descend
// into nested maps, e.g. "data.severity" or "metadata.source". The
// second return value reports whether the path resolved to a value.
func (e *Event) Field(path string) (any, bool) {
	root := map[string]any{
		"id":         e.ID,
		"type":       e.Type,
		"data":       e.Data,
		"metadata":   e.Metadata,
		"created_at": e.CreatedAt,
	}
	return Resolve(root, path)
}

// Resolve walks a dot-separated path through nested maps.
func Resolve(root map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = root
	start := 0
	for i := 0; i <= len(path); i++ {
		if i != len(path) && path[i] != '.' {
			continue
		}
		key := path[start:i]
		start = i + 1

		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
