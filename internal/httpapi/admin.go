package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/borderhub/btms-gateway/internal/queue"
	"github.com/borderhub/btms-gateway/internal/routing"
)

// adminHandler serves the operational surface: route-table inspection and
// dead-letter queue recovery.
type adminHandler struct {
	table  *routing.Table
	store  *queue.Store
	logger *slog.Logger
}

type routeView struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Legend  string `json:"legend"`
	SubPath string `json:"subPath,omitempty"`
	RouteTo string `json:"routeTo"`
	Legacy  string `json:"legacy,omitempty"`
	New     string `json:"new,omitempty"`
	FromCds bool   `json:"fromCds"`
}

func (a *adminHandler) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	routes := a.table.Routes()
	views := make([]routeView, 0, len(routes))
	for _, route := range routes {
		views = append(views, routeView{
			Name:    route.Name,
			Path:    route.PathPrefix,
			Legend:  route.Legend,
			SubPath: route.SubPath,
			RouteTo: route.RouteTo.String(),
			Legacy:  route.Legacy.Name,
			New:     route.New.Name,
			FromCds: route.FromCds,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type messageView struct {
	ID         string    `json:"id"`
	Queue      string    `json:"queue"`
	ResourceID string    `json:"resourceId,omitempty"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"lastError,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func (a *adminHandler) handleListDead(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	dead, err := a.store.ListDead(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]messageView, 0, len(dead))
	for _, msg := range dead {
		views = append(views, messageView{
			ID:         msg.ID,
			Queue:      msg.Queue,
			ResourceID: msg.ResourceID,
			Attempts:   msg.Attempts,
			LastError:  msg.LastError,
			EnqueuedAt: msg.EnqueuedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *adminHandler) handleRedrive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	moved, err := a.store.Redrive(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.logger.Info("dead-letter redrive", "queue", name, "moved", moved)
	writeJSON(w, http.StatusOK, map[string]int{"redriven": moved})
}

func (a *adminHandler) handleDrain(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	removed, err := a.store.Drain(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.logger.Info("dead-letter drain", "queue", name, "removed", removed)
	writeJSON(w, http.StatusOK, map[string]int{"drained": removed})
}

func (a *adminHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.store.Remove(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	a.logger.Info("message removed", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
