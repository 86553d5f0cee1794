package webhooks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Handlers provides the HTTP API for webhook management, event intake
// and introspection.
type Handlers struct {
	engine *Engine
}

// NewHandlers creates HTTP handlers backed by the engine.
func NewHandlers(engine *Engine) *Handlers {
	return &Handlers{engine: engine}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/webhooks", h.createWebhook).Methods("POST")
	router.HandleFunc("/webhooks", h.listWebhooks).Methods("GET")
	router.HandleFunc("/webhooks/{id}", h.getWebhook).Methods("GET")
	router.HandleFunc("/webhooks/{id}", h.updateWebhook).Methods("PUT")
	router.HandleFunc("/webhooks/{id}", h.deleteWebhook).Methods("DELETE")
	router.HandleFunc("/webhooks/{id}/activate", h.activateWebhook).Methods("POST")
	router.HandleFunc("/webhooks/{id}/deactivate", h.deactivateWebhook).Methods("POST")
	router.HandleFunc("/webhooks/{id}/test", h.testWebhook).Methods("POST")
	router.HandleFunc("/webhooks/{id}/stats", h.webhookStats).Methods("GET")
	router.HandleFunc("/webhooks/{id}/deliveries", h.webhookDeliveries).Methods("GET")
	router.HandleFunc("/events", h.emitEvent).Methods("POST")
	router.HandleFunc("/event-types", h.eventTypes).Methods("GET")
	router.HandleFunc("/stats", h.systemStats).Methods("GET")
}

// createWebhook handles POST /webhooks
func (h *Handlers) createWebhook(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	webhook, err := h.engine.Register(cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(webhook)
}

// listWebhooks handles GET /webhooks
func (h *Handlers) listWebhooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.List())
}

// getWebhook handles GET /webhooks/{id}
func (h *Handlers) getWebhook(w http.ResponseWriter, r *http.Request) {
	webhook, err := h.engine.Get(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, webhook)
}

// updateWebhook handles PUT /webhooks/{id}
func (h *Handlers) updateWebhook(w http.ResponseWriter, r *http.Request) {
	var partial Config
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	webhook, err := h.engine.Update(mux.Vars(r)["id"], partial)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, webhook)
}

// deleteWebhook handles DELETE /webhooks/{id}
func (h *Handlers) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Unregister(mux.Vars(r)["id"]) {
		http.Error(w, ErrWebhookNotFound.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// activateWebhook handles POST /webhooks/{id}/activate
func (h *Handlers) activateWebhook(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, StatusActive)
}

// deactivateWebhook handles POST /webhooks/{id}/deactivate
func (h *Handlers) deactivateWebhook(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, StatusDisabled)
}

func (h *Handlers) setStatus(w http.ResponseWriter, r *http.Request, status Status) {
	webhook, err := h.engine.SetStatus(mux.Vars(r)["id"], status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, webhook)
}

// testWebhook handles POST /webhooks/{id}/test
func (h *Handlers) testWebhook(w http.ResponseWriter, r *http.Request) {
	delivery, err := h.engine.TestWebhook(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, delivery)
}

// webhookStats handles GET /webhooks/{id}/stats
func (h *Handlers) webhookStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.WebhookStats(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, stats)
}

// webhookDeliveries handles GET /webhooks/{id}/deliveries
func (h *Handlers) webhookDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	id := mux.Vars(r)["id"]
	if _, err := h.engine.Get(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	deliveries := h.engine.Deliveries(id, limit)
	if deliveries == nil {
		deliveries = []*Delivery{}
	}
	writeJSON(w, deliveries)
}

type emitRequest struct {
	Type     string         `json:"type"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// emitEvent handles POST /events
func (h *Handlers) emitEvent(w http.ResponseWriter, r *http.Request) {
	var req emitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := h.engine.Emit(r.Context(), req.Type, req.Data, req.Metadata)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(event)
}

// eventTypes handles GET /event-types
func (h *Handlers) eventTypes(w http.ResponseWriter, r *http.Request) {
	catalog := h.engine.Catalog()
	if catalog == nil {
		http.Error(w, "no event type catalog configured", http.StatusNotFound)
		return
	}
	writeJSON(w, catalog)
}

// systemStats handles GET /stats
func (h *Handlers) systemStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.SystemStats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	if errors.Is(err, ErrWebhookNotFound) {
		return http.StatusNotFound
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
