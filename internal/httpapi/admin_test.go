package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/borderhub/btms-gateway/internal/metrics"
	"github.com/borderhub/btms-gateway/internal/queue"
	"github.com/borderhub/btms-gateway/internal/routing"
	"github.com/borderhub/btms-gateway/internal/shared/logging"
)

func newAdmin(t *testing.T) (http.Handler, *queue.Store) {
	t.Helper()
	ctx := context.Background()
	store, err := queue.Open(ctx, filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	table, err := routing.NewTable(clearanceConfig("http://alvs.example", "legacy"))
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return NewAdmin(table, store, metrics.New(), logging.New("test")), store
}

// deadLetter publishes one message and burns its only attempt.
func deadLetter(t *testing.T, store *queue.Store, queueName string) string {
	t.Helper()
	ctx := context.Background()
	id, err := store.Publish(ctx, queueName, "payload", "mrn-1")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := store.Fail(ctx, id, "downstream down", 1); err != nil {
		t.Fatalf("fail: %v", err)
	}
	return id
}

func TestAdminListRoutes(t *testing.T) {
	handler, _ := newAdmin(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/routes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var routes []routeView
	if err := json.NewDecoder(rec.Body).Decode(&routes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(routes) != 1 || routes[0].Name != "cds-clearance" || routes[0].RouteTo != "legacy" {
		t.Errorf("routes = %+v", routes)
	}
}

func TestAdminDeadLetterLifecycle(t *testing.T) {
	handler, store := newAdmin(t)
	ctx := context.Background()
	deadLetter(t, store, "decisions")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/queues/decisions/dead", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var dead []messageView
	if err := json.NewDecoder(rec.Body).Decode(&dead); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dead) != 1 || dead[0].ResourceID != "mrn-1" || dead[0].LastError != "downstream down" {
		t.Fatalf("dead = %+v", dead)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queues/decisions/redrive", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"redriven":1`) {
		t.Errorf("redrive = %d %q", rec.Code, rec.Body.String())
	}

	msg, err := store.Receive(ctx, "decisions")
	if err != nil || msg == nil {
		t.Fatalf("redriven message not receivable: %v", err)
	}
	if msg.Attempts != 0 {
		t.Errorf("attempts = %d after redrive", msg.Attempts)
	}
}

func TestAdminDrainRemovesDeadMessages(t *testing.T) {
	handler, store := newAdmin(t)
	deadLetter(t, store, "errors")
	deadLetter(t, store, "errors")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/queues/errors/dead", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"drained":2`) {
		t.Fatalf("drain = %d %q", rec.Code, rec.Body.String())
	}

	depth, err := store.Depth(context.Background(), "errors")
	if err != nil || depth != 0 {
		t.Errorf("depth after drain = %d (%v)", depth, err)
	}
}

func TestAdminRemoveMessage(t *testing.T) {
	handler, store := newAdmin(t)
	id := deadLetter(t, store, "decisions")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/messages/"+id, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("remove = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/messages/"+id, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("remove missing = %d", rec.Code)
	}
}

func TestAdminMetricsEndpoint(t *testing.T) {
	handler, _ := newAdmin(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "btmsgw_") {
		t.Errorf("exposition missing gateway collectors")
	}
}
