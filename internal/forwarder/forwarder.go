// Package forwarder drives the two event-driven flows — clearance decisions
// and processing errors — through the reconciliation ("Comparer") service
// and, while the legacy side remains authoritative, on to the legacy
// partner. Unlike the best-effort dispatch forks, every failure here
// propagates as a typed error: the queue consumer owns retry and
// dead-letter semantics.
package forwarder

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

// Destination names the forwarder requires at construction time.
const (
	DestDecisionComparer = "BtmsCds"
	DestErrorComparer    = "BtmsOutboundErrors"
	DestLegacyPartner    = "Cds"
)

const (
	flowDecision = "decision"
	flowError    = "error"

	decisionMessage = "DecisionNotification"
	errorMessage    = "HMRCErrorNotification"
)

// Forwarder sends reconciled decisions and errors downstream.
type Forwarder struct {
	transcoder *transcode.Transcoder
	builder    *soapmsg.Builder
	client     *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	creds      soapmsg.Credentials

	decisionComparer routing.Destination
	errorComparer    routing.Destination
	legacy           routing.Destination

	// cutoverEnabled selects the authoritative side during the migration
	// window: false releases the Comparer-confirmed answer to the legacy
	// partner, true trusts the modernized system and skips the release.
	cutoverEnabled bool
}

// New resolves every destination the forwarder uses; a missing destination
// is a configuration defect reported before any traffic flows.
func New(table *routing.Table, transcoder *transcode.Transcoder, builder *soapmsg.Builder, client *http.Client, logger *slog.Logger, m *metrics.Metrics, creds soapmsg.Credentials, cutoverEnabled bool) (*Forwarder, error) {
	f := &Forwarder{
		transcoder:     transcoder,
		builder:        builder,
		client:         client,
		logger:         logger,
		metrics:        m,
		creds:          creds,
		cutoverEnabled: cutoverEnabled,
	}
	var ok bool
	if f.decisionComparer, ok = table.Destination(DestDecisionComparer); !ok {
		return nil, routing.TableError{Err: fmt.Errorf("destination %q does not exist", DestDecisionComparer)}
	}
	if f.errorComparer, ok = table.Destination(DestErrorComparer); !ok {
		return nil, routing.TableError{Err: fmt.Errorf("destination %q does not exist", DestErrorComparer)}
	}
	if f.legacy, ok = table.Destination(DestLegacyPartner); !ok {
		return nil, routing.TableError{Err: fmt.Errorf("destination %q does not exist", DestLegacyPartner)}
	}
	return f, nil
}

// SendClearanceDecision renders a clearance-decision payload into the
// legacy SOAP dialect, submits it to the Comparer, and releases the
// authoritative answer to the legacy partner while the feature flag keeps
// the legacy side authoritative.
func (f *Forwarder) SendClearanceDecision(ctx context.Context, mrn, payload string) error {
	return f.forward(ctx, flowDecision, decisionMessage, f.decisionComparer, mrn, payload)
}

// SendProcessingError is the processing-error counterpart of
// SendClearanceDecision.
func (f *Forwarder) SendProcessingError(ctx context.Context, mrn, payload string) error {
	return f.forward(ctx, flowError, errorMessage, f.errorComparer, mrn, payload)
}

func (f *Forwarder) forward(ctx context.Context, flow, messageName string, comparer routing.Destination, mrn, payload string) error {
	if strings.TrimSpace(mrn) == "" {
		return fmt.Errorf("%s flow: mrn: %w", flow, ErrEmptyPayload)
	}
	if strings.TrimSpace(payload) == "" {
		return fmt.Errorf("%s flow for mrn %s: %w", flow, mrn, ErrEmptyPayload)
	}

	xmlBody, err := f.transcoder.JSONToXML(payload, messageName)
	if err != nil {
		f.metrics.RecordFault(flow, false)
		return fmt.Errorf("%s flow for mrn %s: %w", flow, mrn, err)
	}
	soap, err := f.builder.WrapLegacy(messageName, xmlBody, f.creds)
	if err != nil {
		f.metrics.RecordFault(flow, false)
		return fmt.Errorf("%s flow for mrn %s: %w", flow, mrn, err)
	}

	confirmed, err := f.sendToComparer(ctx, flow, comparer, mrn, soap)
	if err != nil {
		return err
	}

	if f.cutoverEnabled {
		f.logger.Info("cutover enabled, skipping legacy release", "flow", flow, "mrn", mrn)
		return nil
	}
	return f.release(ctx, flow, mrn, confirmed)
}

// sendToComparer submits the SOAP payload to the reconciliation service at
// its per-mrn URL. 2xx and 204 are success; the Comparer may substitute its
// own reconciled payload in the response body.
func (f *Forwarder) sendToComparer(ctx context.Context, flow string, comparer routing.Destination, mrn, soap string) (string, error) {
	target := joinURL(comparer.URL, comparer.Path, mrn)
	status, body, err := f.do(ctx, comparer.Method, target, comparer.ContentType, comparer.HostHeader, soap)
	if err != nil {
		f.metrics.RecordFault(flow, false)
		return "", fmt.Errorf("%s flow for mrn %s: comparer: %w", flow, mrn, err)
	}
	switch {
	case status == http.StatusConflict:
		f.metrics.RecordFault(flow, true)
		return "", ConflictError{Mrn: mrn, Hop: "comparer"}
	case status == http.StatusNoContent || (status >= 200 && status < 300):
		if strings.TrimSpace(body) != "" {
			return body, nil
		}
		return soap, nil
	default:
		f.metrics.RecordFault(flow, false)
		return "", ComparerError{Mrn: mrn, Status: status}
	}
}

func (f *Forwarder) release(ctx context.Context, flow, mrn, soap string) error {
	target := joinURL(f.legacy.URL, f.legacy.Path, "")
	status, _, err := f.do(ctx, f.legacy.Method, target, f.legacy.ContentType, f.legacy.HostHeader, soap)
	if err != nil {
		f.metrics.RecordFault(flow, false)
		return ReleaseError{Mrn: mrn, Target: f.legacy.Name, Err: err}
	}
	switch {
	case status == http.StatusConflict:
		f.metrics.RecordFault(flow, true)
		return ConflictError{Mrn: mrn, Hop: "cds"}
	case status == http.StatusNoContent || (status >= 200 && status < 300):
		f.logger.Info("released to legacy partner", "flow", flow, "mrn", mrn, "status", status)
		return nil
	default:
		f.metrics.RecordFault(flow, false)
		return ReleaseError{Mrn: mrn, Target: f.legacy.Name, Status: status}
	}
}

func (f *Forwarder) do(ctx context.Context, method, target, contentType, hostHeader, body string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, strings.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	if contentType == "" {
		contentType = "application/soap+xml"
	}
	req.Header.Set("Content-Type", contentType)
	if hostHeader != "" {
		req.Host = hostHeader
	}

	started := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	f.logger.Debug("downstream send",
		"method", method, "target", target, "status", resp.StatusCode, "elapsed", time.Since(started))
	return resp.StatusCode, string(responseBody), nil
}

func joinURL(base, path, suffix string) string {
	out := strings.TrimRight(base, "/")
	if path != "" {
		out += "/" + strings.Trim(path, "/")
	}
	if suffix != "" {
		out += "/" + suffix
	}
	return out
}
