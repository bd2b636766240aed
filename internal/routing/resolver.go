package routing

import (
	"strings"

	"github.com/borderhub/btms-gateway/internal/soapmsg"
)

// GetRoute resolves an inbound path, disambiguated where necessary by
// probing the parsed message body, to a routing decision. msg may be nil
// when the body could not be parsed; routes that need body disambiguation
// then report not-found.
func (t *Table) GetRoute(path string, msg *soapmsg.Envelope, correlationID, mrn string) RoutingResult {
	notFound := RoutingResult{CorrelationID: correlationID, Mrn: mrn}

	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return notFound
	}

	type candidate struct {
		route Route
		rest  string
	}
	var candidates []candidate
	for _, route := range t.routes {
		if rest, ok := matchPrefix(trimmed, route.PathPrefix); ok {
			candidates = append(candidates, candidate{route: route, rest: rest})
		}
	}

	var selected *candidate
	switch {
	case len(candidates) == 1:
		selected = &candidates[0]
	case len(candidates) > 1 && msg != nil:
		// Several routes share the prefix; the sub-message probe decides,
		// in configuration order.
		for i := range candidates {
			if msg.HasMessage(candidates[i].route.SubPath) {
				selected = &candidates[i]
				break
			}
		}
	}
	if selected == nil {
		return notFound
	}

	route := selected.route
	primary, fork := route.Legacy, route.New
	if route.RouteTo == TargetNew {
		primary, fork = fork, primary
	}

	return RoutingResult{
		RouteFound:    true,
		RouteName:     route.Name,
		Legend:        route.Legend,
		MessageName:   messageName(route.SubPath),
		SubPath:       route.SubPath,
		BodyDepth:     route.BodyDepth,
		FromCds:       route.FromCds,
		CorrelationID: correlationID,
		Mrn:           mrn,
		Primary:       resolve(primary, route, selected.rest),
		Fork:          resolve(fork, route, selected.rest),
	}
}

// IsCdsRoute reports whether every route matching the path is flagged as
// CDS-originated. Callers use it to pick a default error status when the
// body cannot even be parsed enough to disambiguate.
func (t *Table) IsCdsRoute(path string) bool {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return false
	}
	matched := false
	for _, route := range t.routes {
		if _, ok := matchPrefix(trimmed, route.PathPrefix); ok {
			if !route.FromCds {
				return false
			}
			matched = true
		}
	}
	return matched
}

// resolve expands a link into a send target. URL-typed links absorb the
// remainder of the inbound path; queue links stay bare names. The modernized
// side always receives transcoded JSON, as does any queue destination.
func resolve(link Link, route Route, rest string) ResolvedLink {
	address := link.Address
	if link.Kind == LinkURL || link.Kind == LinkComparer {
		address = strings.TrimRight(link.Address, "/") + rest
	}
	return ResolvedLink{
		Kind:       link.Kind,
		Address:    address,
		HostHeader: link.HostHeader,
		Transcode:  link.Name == route.New.Name && link.Name != "" || link.Kind == LinkQueue,
	}
}

// matchPrefix reports whether path falls under prefix on a whole-segment
// boundary, case-insensitively, returning the unmatched remainder with its
// original casing.
func matchPrefix(path, prefix string) (string, bool) {
	if len(path) < len(prefix) {
		return "", false
	}
	if !strings.EqualFold(path[:len(prefix)], prefix) {
		return "", false
	}
	rest := path[len(prefix):]
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return "", false
	}
	return rest, true
}

func messageName(subPath string) string {
	if subPath == "" {
		return ""
	}
	segments := strings.Split(subPath, "/")
	return segments[len(segments)-1]
}
