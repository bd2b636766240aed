package routing

import "time"

// ResolvedLink is one side of a routing decision: where to send, how to
// address the host, and whether the payload must be transcoded to JSON on
// the way out.
type ResolvedLink struct {
	Kind       LinkKind
	Address    string
	HostHeader string
	Transcode  bool
}

// RoutingResult is the outcome of resolution and dispatch. It is an
// immutable value: later stages derive a new result from a prior one rather
// than mutating in place, preserving an audit trail of each stage's
// contribution.
type RoutingResult struct {
	RouteFound    bool
	RouteName     string
	Legend        string
	MessageName   string
	SubPath       string
	BodyDepth     int
	FromCds       bool
	CorrelationID string
	Mrn           string

	Primary ResolvedLink
	Fork    ResolvedLink

	StatusCode   int
	ResponseBody string
	ResponseDate time.Time
	ErrorMessage string
}

// WithResponse derives a result carrying a downstream response.
func (r RoutingResult) WithResponse(status int, body string, at time.Time) RoutingResult {
	r.StatusCode = status
	r.ResponseBody = body
	r.ResponseDate = at
	return r
}

// WithError derives a result carrying a failure outcome.
func (r RoutingResult) WithError(status int, message string, at time.Time) RoutingResult {
	r.StatusCode = status
	r.ErrorMessage = message
	r.ResponseDate = at
	return r
}
