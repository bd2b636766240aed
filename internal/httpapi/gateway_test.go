package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/borderhub/btms-gateway/internal/dispatch"
	"github.com/borderhub/btms-gateway/internal/metrics"
	"github.com/borderhub/btms-gateway/internal/routing"
	"github.com/borderhub/btms-gateway/internal/shared/logging"
	"github.com/borderhub/btms-gateway/internal/soapmsg"
	"github.com/borderhub/btms-gateway/internal/transcode"
)

const clearanceSoap = `<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <ALVSClearanceRequest xmlns="http://submitimportdocumenthmrcfacade.types.esb.ws.cara.defra.com">
      <Header>
        <EntryReference>24GBTESTMRN</EntryReference>
      </Header>
    </ALVSClearanceRequest>
  </soap:Body>
</soap:Envelope>`

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, string) (string, error) {
	return "msg-1", nil
}

// newGateway builds the data-plane handler over the given table. The
// orchestrator uses a plain client; downstreams are httptest servers.
func newGateway(t *testing.T, cfg routing.Config, m *metrics.Metrics) http.Handler {
	t.Helper()
	table, err := routing.NewTable(cfg)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	logger := logging.New("test")
	orchestrator := dispatch.New(transcode.New(transcode.Options{}), soapmsg.NewCatalog(),
		noopPublisher{}, &http.Client{Timeout: 5 * time.Second}, logger, m)
	return New(table, orchestrator, logger, m)
}

func clearanceConfig(backendURL, target string) routing.Config {
	return routing.Config{
		Links: []routing.LinkConfig{
			{Name: "alvs", Type: "url", Address: backendURL},
			{Name: "btms", Type: "url", Address: backendURL},
		},
		Routes: []routing.RouteConfig{{
			Name:       "cds-clearance",
			Path:       "/ws/cds/clearance/v1",
			Legend:     "CDS Clearance",
			SubPath:    "ALVSClearanceRequest",
			BodyDepth:  1,
			FromCds:    true,
			RouteTo:    target,
			LegacyLink: "alvs",
			NewLink:    "btms",
		}},
	}
}

func TestGatewayRoutesAndEchoesHeaders(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "accepted")
	}))
	defer backend.Close()

	handler := newGateway(t, clearanceConfig(backend.URL, "legacy"), metrics.New())
	req := httptest.NewRequest(http.MethodPost, "/ws/cds/clearance/v1", strings.NewReader(clearanceSoap))
	req.Header.Set("Content-Type", "application/soap+xml")
	req.Header.Set("X-Correlation-ID", "corr-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "accepted" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-42" {
		t.Errorf("correlation header = %q", got)
	}
	if got := rec.Header().Get("x-requested-path"); got != "/ws/cds/clearance/v1" {
		t.Errorf("requested-path header = %q", got)
	}
}

func TestGatewayGeneratesCorrelationID(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	handler := newGateway(t, clearanceConfig(backend.URL, "legacy"), metrics.New())
	req := httptest.NewRequest(http.MethodPost, "/ws/cds/clearance/v1", strings.NewReader(clearanceSoap))
	req.Header.Set("Content-Type", "application/soap+xml")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	got := rec.Header().Get("X-Correlation-ID")
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("generated correlation id %q: %v", got, err)
	}
}

func TestGatewayTranscodedRouteAnswersJSON(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"ok": true}`)
	}))
	defer backend.Close()

	handler := newGateway(t, clearanceConfig(backend.URL, "new"), metrics.New())
	req := httptest.NewRequest(http.MethodPost, "/ws/cds/clearance/v1", strings.NewReader(clearanceSoap))
	req.Header.Set("Content-Type", "application/soap+xml")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q, want application/json", got)
	}
}

func TestGatewayDegradedTranscodedRouteAnswersPlainText(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close() // connection refused from here on

	handler := newGateway(t, clearanceConfig(backend.URL, "new"), metrics.New())
	req := httptest.NewRequest(http.MethodPost, "/ws/cds/clearance/v1", strings.NewReader(clearanceSoap))
	req.Header.Set("Content-Type", "application/soap+xml")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("content type = %q, want text/plain", got)
	}
	if !strings.Contains(rec.Body.String(), "send to") {
		t.Errorf("body = %q, want transport diagnostic", rec.Body.String())
	}
}

func TestGatewayInvalidSoapStatusDependsOnOrigin(t *testing.T) {
	cfg := routing.Config{
		Links: []routing.LinkConfig{{Name: "alvs", Type: "url", Address: "http://alvs.example"}},
		Routes: []routing.RouteConfig{
			{Name: "cds-clearance", Path: "/ws/cds/clearance/v1", SubPath: "ALVSClearanceRequest",
				FromCds: true, RouteTo: "legacy", LegacyLink: "alvs"},
			{Name: "alvs-decision", Path: "/ws/alvs/decision/v1", SubPath: "DecisionNotification",
				RouteTo: "legacy", LegacyLink: "alvs"},
		},
	}
	handler := newGateway(t, cfg, metrics.New())

	cases := []struct {
		path string
		want int
	}{
		{"/ws/cds/clearance/v1", http.StatusBadRequest},
		{"/ws/alvs/decision/v1", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader("<not-soap"))
		req.Header.Set("Content-Type", "application/soap+xml")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
}

func TestGatewayRouteNotFound(t *testing.T) {
	m := metrics.New()
	handler := newGateway(t, clearanceConfig("http://alvs.example", "legacy"), m)
	req := httptest.NewRequest(http.MethodPost, "/ws/unknown/v9", strings.NewReader(clearanceSoap))
	req.Header.Set("Content-Type", "application/soap+xml")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Body.String() != "Route not found" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := testutil.ToFloat64(m.RoutingMisses); got != 1 {
		t.Errorf("routing misses = %v, want 1", got)
	}
}

func TestGatewayHealth(t *testing.T) {
	handler := newGateway(t, clearanceConfig("http://alvs.example", "legacy"), metrics.New())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}
