package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/borderhub/btms-gateway/internal/soapmsg"
)

const (
	headerCorrelationID = "X-Correlation-ID"
	headerRequestedPath = "x-requested-path"
)

// handleGateway is the data-plane entry point: any method, any path. The
// body is parsed as SOAP when the negotiated content type says so, the
// route table resolves the destination pair, and the dispatch orchestrator
// produces the response.
func (h *Handler) handleGateway(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	correlationID := strings.TrimSpace(r.Header.Get(headerCorrelationID))
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		h.respond(w, r, correlationID, http.StatusBadRequest, "", "failed to read request body")
		return
	}
	body := string(bodyBytes)
	contentType := negotiateContentType(r)

	var env *soapmsg.Envelope
	var mrn string
	if body != "" && isXMLContent(contentType) {
		env, err = soapmsg.Parse(body)
		if err != nil {
			// The body cannot even be parsed enough to disambiguate
			// routes; CDS-originated traffic gets a client error, all
			// else a server error.
			status := http.StatusInternalServerError
			if h.table.IsCdsRoute(r.URL.Path) {
				status = http.StatusBadRequest
			}
			h.logger.Warn("invalid soap payload",
				"path", r.URL.Path, "correlation_id", correlationID, "error", err)
			h.respond(w, r, correlationID, status, "", err.Error())
			return
		}
		mrn, _ = env.GetProperty("MRN")
	}

	decision := h.table.GetRoute(r.URL.Path, env, correlationID, mrn)
	if !decision.RouteFound {
		h.metrics.RoutingMisses.Inc()
		h.logger.Warn("route not found", "path", r.URL.Path, "correlation_id", correlationID)
		h.respond(w, r, correlationID, http.StatusInternalServerError, "", "Route not found")
		return
	}

	result := h.orchestrator.Dispatch(r.Context(), decision, r.Method, contentType, body)

	h.metrics.RequestsRouted.WithLabelValues(decision.Legend, decision.MessageName).Inc()
	h.metrics.RequestDuration.WithLabelValues(decision.Legend).Observe(time.Since(started).Seconds())
	h.logger.Info("request routed",
		"route", decision.RouteName,
		"legend", decision.Legend,
		"primary", decision.Primary.Address,
		"status", result.StatusCode,
		"correlation_id", correlationID)

	body = result.ResponseBody
	responseType := contentType
	switch {
	case body == "" && result.ErrorMessage != "":
		// Degraded outcomes carry a plain-text diagnostic, not a payload.
		body = result.ErrorMessage
		responseType = "text/plain"
	case decision.Primary.Transcode:
		responseType = "application/json"
	}
	w.Header().Set("Content-Type", responseType)
	h.respond(w, r, correlationID, result.StatusCode, body, "")
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, correlationID string, status int, body, errorMessage string) {
	w.Header().Set(headerCorrelationID, correlationID)
	w.Header().Set(headerRequestedPath, r.URL.Path)
	w.WriteHeader(status)
	if body != "" {
		_, _ = io.WriteString(w, body)
	} else if errorMessage != "" {
		_, _ = io.WriteString(w, errorMessage)
	}
}

// negotiateContentType prefers the request Content-Type and falls back to
// the first Accept entry.
func negotiateContentType(r *http.Request) string {
	if ct := strings.TrimSpace(r.Header.Get("Content-Type")); ct != "" {
		return ct
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept")); accept != "" {
		return strings.TrimSpace(strings.Split(accept, ",")[0])
	}
	return "application/soap+xml"
}

func isXMLContent(contentType string) bool {
	lowered := strings.ToLower(contentType)
	return strings.Contains(lowered, "xml") || strings.Contains(lowered, "soap")
}
