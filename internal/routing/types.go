// Package routing resolves inbound request paths, optionally disambiguated
// by probabilistic inspection of the message body, to a configured pair of
// destinations: a primary whose response is returned to the caller and a
// best-effort fork. The routing table is validated and indexed once at
// startup; nothing is re-validated per request.
package routing

import (
	"fmt"
	"strings"
)

// TableError wraps every routing-table configuration defect. A TableError at
// startup must prevent the process from serving traffic.
type TableError struct{ Err error }

func (e TableError) Error() string { return fmt.Sprintf("routing table: %v", e.Err) }
func (e TableError) Unwrap() error { return e.Err }

// LinkKind classifies what a named link points at.
type LinkKind int

const (
	LinkNone LinkKind = iota
	LinkURL
	LinkQueue
	LinkSynthetic
	LinkComparer
)

func (k LinkKind) String() string {
	switch k {
	case LinkNone:
		return "none"
	case LinkURL:
		return "url"
	case LinkQueue:
		return "queue"
	case LinkSynthetic:
		return "synthetic"
	case LinkComparer:
		return "comparer"
	default:
		return fmt.Sprintf("linkkind(%d)", int(k))
	}
}

// ParseLinkKind maps the configuration spelling of a link type.
func ParseLinkKind(s string) (LinkKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return LinkNone, nil
	case "url":
		return LinkURL, nil
	case "queue":
		return LinkQueue, nil
	case "synthetic":
		return LinkSynthetic, nil
	case "comparer":
		return LinkComparer, nil
	default:
		return LinkNone, fmt.Errorf("link type %q not recognised", s)
	}
}

// RouteTarget selects which side of a route is primary during the migration
// window; the other side receives the fork.
type RouteTarget int

const (
	TargetLegacy RouteTarget = iota
	TargetNew
)

func (t RouteTarget) String() string {
	if t == TargetNew {
		return "new"
	}
	return "legacy"
}

// ParseRouteTarget maps the configuration spelling of a route target.
func ParseRouteTarget(s string) (RouteTarget, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy":
		return TargetLegacy, nil
	case "new":
		return TargetNew, nil
	default:
		return TargetLegacy, fmt.Errorf("route target %q not recognised", s)
	}
}

// Link is a validated named link record.
type Link struct {
	Name       string
	Kind       LinkKind
	Address    string
	HostHeader string
}

// Route is a validated named route record. Routes are held in configuration
// order; disambiguation order is load-bearing.
type Route struct {
	Name       string
	PathPrefix string
	SubPath    string
	Legend     string
	BodyDepth  int
	FromCds    bool
	RouteTo    RouteTarget
	Legacy     Link
	New        Link
}

// Destination is a fully specified send target used by the decision and
// error forwarding flows.
type Destination struct {
	Name        string
	URL         string
	Path        string
	ContentType string
	Method      string
	HostHeader  string
}
