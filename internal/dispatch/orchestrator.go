// Package dispatch executes routing decisions: exactly one primary send
// whose outcome is returned to the caller, and one independent best-effort
// fork whose failure is recorded but never surfaces.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/borderhub/btms-gateway/internal/metrics"
	"github.com/borderhub/btms-gateway/internal/routing"
	"github.com/borderhub/btms-gateway/internal/soapmsg"
	"github.com/borderhub/btms-gateway/internal/transcode"
)

const (
	contentTypeJSON = "application/json"
	contentTypeSoap = "application/soap+xml"
)

// Publisher is the outbound queue surface the orchestrator needs.
type Publisher interface {
	Publish(ctx context.Context, queue, body, resourceID string) (string, error)
}

// Orchestrator sends routed messages to their destinations.
type Orchestrator struct {
	transcoder *transcode.Transcoder
	catalog    *soapmsg.Catalog
	queues     Publisher
	client     *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New constructs an Orchestrator. The HTTP client is one of the named
// profiles; any retry policy lives inside it.
func New(transcoder *transcode.Transcoder, catalog *soapmsg.Catalog, queues Publisher, client *http.Client, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		transcoder: transcoder,
		catalog:    catalog,
		queues:     queues,
		client:     client,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// Dispatch performs the primary send and the independent fork for one
// routed request. The returned result always derives from the primary
// outcome; the fork can only ever add a metric and a log line.
func (o *Orchestrator) Dispatch(ctx context.Context, decision routing.RoutingResult, method, contentType, body string) routing.RoutingResult {
	primary := o.send(ctx, decision, decision.Primary, method, contentType, body)

	fork := o.send(ctx, decision, decision.Fork, method, contentType, body)
	if fork.StatusCode >= http.StatusMultipleChoices || fork.ErrorMessage != "" {
		o.metrics.ForkFailures.WithLabelValues(decision.Legend).Inc()
		o.logger.Warn("fork send failed",
			"route", decision.RouteName,
			"destination", decision.Fork.Address,
			"status", fork.StatusCode,
			"error", fork.ErrorMessage,
			"correlation_id", decision.CorrelationID)
	}

	return primary
}

// send delivers to a single resolved link. A transport failure degrades to
// a ServiceUnavailable result rather than propagating; callers that need
// typed errors (the decision/error forwarder) do not come through here.
func (o *Orchestrator) send(ctx context.Context, decision routing.RoutingResult, link routing.ResolvedLink, method, contentType, body string) routing.RoutingResult {
	switch link.Kind {
	case routing.LinkNone:
		return decision.WithResponse(http.StatusOK, "", o.now())
	case routing.LinkSynthetic:
		return o.sendSynthetic(decision)
	case routing.LinkQueue:
		return o.sendQueue(ctx, decision, link, body)
	default:
		return o.sendHTTP(ctx, decision, link, method, contentType, body)
	}
}

func (o *Orchestrator) sendSynthetic(decision routing.RoutingResult) routing.RoutingResult {
	canned, ok := o.catalog.SyntheticResponse(decision.MessageName)
	if !ok {
		return decision.WithError(http.StatusInternalServerError,
			fmt.Sprintf("no synthetic response for message %q", decision.MessageName), o.now())
	}
	return decision.WithResponse(http.StatusOK, canned, o.now())
}

func (o *Orchestrator) sendQueue(ctx context.Context, decision routing.RoutingResult, link routing.ResolvedLink, body string) routing.RoutingResult {
	payload, err := o.transcoder.SoapToJSON(body, decision.SubPath, decision.BodyDepth)
	if err != nil {
		return decision.WithError(http.StatusInternalServerError,
			fmt.Sprintf("transcode for queue %s: %v", link.Address, err), o.now())
	}
	if _, err := o.queues.Publish(ctx, link.Address, payload, decision.Mrn); err != nil {
		return decision.WithError(http.StatusServiceUnavailable,
			fmt.Sprintf("publish to %s: %v", link.Address, err), o.now())
	}
	o.metrics.QueuePublished.WithLabelValues(link.Address).Inc()
	return decision.WithResponse(http.StatusOK, "", o.now())
}

func (o *Orchestrator) sendHTTP(ctx context.Context, decision routing.RoutingResult, link routing.ResolvedLink, method, contentType, body string) routing.RoutingResult {
	if contentType == "" {
		contentType = contentTypeSoap
	}
	payload := body
	if link.Transcode {
		transcoded, err := o.transcoder.SoapToJSON(body, decision.SubPath, decision.BodyDepth)
		if err != nil {
			return decision.WithError(http.StatusInternalServerError,
				fmt.Sprintf("transcode for %s: %v", link.Address, err), o.now())
		}
		payload = transcoded
		contentType = contentTypeJSON
	}

	req, err := http.NewRequestWithContext(ctx, method, link.Address, strings.NewReader(payload))
	if err != nil {
		return decision.WithError(http.StatusInternalServerError,
			fmt.Sprintf("build request for %s: %v", link.Address, err), o.now())
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Correlation-ID", decision.CorrelationID)
	if link.HostHeader != "" {
		req.Host = link.HostHeader
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return decision.WithError(http.StatusServiceUnavailable,
			fmt.Sprintf("send to %s: %v", link.Address, err), o.now())
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return decision.WithError(http.StatusServiceUnavailable,
			fmt.Sprintf("read response from %s: %v", link.Address, err), o.now())
	}
	return decision.WithResponse(resp.StatusCode, string(responseBody), o.now())
}
