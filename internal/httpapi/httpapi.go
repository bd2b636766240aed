// Package httpapi wires the gateway's HTTP surfaces: the catch-all data
// plane that routes partner traffic, and the admin plane (route table
// inspection, dead-letter queue operations) served on a separate listener
// alongside metrics.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/borderhub/btms-gateway/internal/dispatch"
	"github.com/borderhub/btms-gateway/internal/metrics"
	"github.com/borderhub/btms-gateway/internal/queue"
	"github.com/borderhub/btms-gateway/internal/routing"
)

// Handler serves the gateway data plane.
type Handler struct {
	table        *routing.Table
	orchestrator *dispatch.Orchestrator
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// New constructs the data-plane router: health plus the catch-all gateway
// endpoint.
func New(table *routing.Table, orchestrator *dispatch.Orchestrator, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	h := &Handler{table: table, orchestrator: orchestrator, logger: logger, metrics: m}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)
	r.HandleFunc("/*", h.handleGateway)
	return r
}

// NewAdmin constructs the admin router: metrics, route-table inspection,
// and the dead-letter queue surface.
func NewAdmin(table *routing.Table, store *queue.Store, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	a := &adminHandler{table: table, store: store, logger: logger}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", m.Handler())
	r.Get("/routes", a.handleListRoutes)
	r.Get("/queues/{queue}/dead", a.handleListDead)
	r.Post("/queues/{queue}/redrive", a.handleRedrive)
	r.Delete("/queues/{queue}/dead", a.handleDrain)
	r.Delete("/messages/{id}", a.handleRemove)
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
