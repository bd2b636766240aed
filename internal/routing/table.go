package routing

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of the routing table.
type Config struct {
	Routes       []RouteConfig       `yaml:"routes"`
	Links        []LinkConfig        `yaml:"links"`
	Destinations []DestinationConfig `yaml:"destinations"`
	Transcoding  TranscodingConfig   `yaml:"transcoding"`
}

// TranscodingConfig carries the schema-less transcoding heuristics: which
// plural property names unroll to which singular element names, and which
// field names are numeric.
type TranscodingConfig struct {
	KnownArrays  map[string]string `yaml:"known-arrays"`
	KnownNumbers []string          `yaml:"known-numbers"`
}

// RouteConfig is one named route as configured.
type RouteConfig struct {
	Name       string `yaml:"name"`
	Path       string `yaml:"path"`
	Legend     string `yaml:"legend"`
	SubPath    string `yaml:"sub-path"`
	BodyDepth  int    `yaml:"body-depth"`
	FromCds    bool   `yaml:"from-cds"`
	RouteTo    string `yaml:"route-to"`
	LegacyLink string `yaml:"legacy-link"`
	NewLink    string `yaml:"new-link"`
}

// LinkConfig is one named link as configured.
type LinkConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Address    string `yaml:"address"`
	HostHeader string `yaml:"host-header"`
}

// DestinationConfig is one decision/error forwarding destination as
// configured.
type DestinationConfig struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Path        string `yaml:"path"`
	ContentType string `yaml:"content-type"`
	Method      string `yaml:"method"`
	HostHeader  string `yaml:"host-header"`
}

// Table is the resolved, validated, indexed routing table. It is built once
// at startup and never mutated.
type Table struct {
	routes       []Route
	destinations map[string]Destination
	transcoding  TranscodingConfig
}

// Transcoding returns the configured transcoding heuristics.
func (t *Table) Transcoding() TranscodingConfig {
	return t.transcoding
}

// LoadFile reads and validates a routing table from a YAML file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, TableError{Err: fmt.Errorf("read %s: %w", path, err)}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, TableError{Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return NewTable(cfg)
}

// NewTable validates the configuration and builds the indexed table. Every
// defect is reported as a TableError; a table is either fully valid or the
// process must not serve traffic.
func NewTable(cfg Config) (*Table, error) {
	links := make(map[string]Link, len(cfg.Links))
	for _, lc := range cfg.Links {
		name := strings.TrimSpace(lc.Name)
		if name == "" {
			return nil, TableError{Err: fmt.Errorf("link with empty name")}
		}
		if _, exists := links[name]; exists {
			return nil, TableError{Err: fmt.Errorf("duplicate link %q", name)}
		}
		link, err := buildLink(lc)
		if err != nil {
			return nil, TableError{Err: err}
		}
		links[name] = link
	}

	table := &Table{
		destinations: make(map[string]Destination, len(cfg.Destinations)),
		transcoding:  cfg.Transcoding,
	}
	seen := make(map[string]struct{}, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		route, err := buildRoute(rc, links)
		if err != nil {
			return nil, TableError{Err: err}
		}
		if _, exists := seen[route.Name]; exists {
			return nil, TableError{Err: fmt.Errorf("duplicate route %q", route.Name)}
		}
		seen[route.Name] = struct{}{}
		table.routes = append(table.routes, route)
	}

	for _, dc := range cfg.Destinations {
		dest, err := buildDestination(dc)
		if err != nil {
			return nil, TableError{Err: err}
		}
		if _, exists := table.destinations[dest.Name]; exists {
			return nil, TableError{Err: fmt.Errorf("duplicate destination %q", dest.Name)}
		}
		table.destinations[dest.Name] = dest
	}

	return table, nil
}

// Destination looks up a decision/error forwarding destination by logical
// purpose.
func (t *Table) Destination(name string) (Destination, bool) {
	dest, ok := t.destinations[name]
	return dest, ok
}

// Routes returns the configured routes in configuration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

func buildLink(lc LinkConfig) (Link, error) {
	kind, err := ParseLinkKind(lc.Type)
	if err != nil {
		return Link{}, fmt.Errorf("link %q: %w", lc.Name, err)
	}
	address := strings.TrimSpace(lc.Address)
	switch kind {
	case LinkURL, LinkComparer:
		if err := validateAbsoluteURL(address); err != nil {
			return Link{}, fmt.Errorf("link %q: %w", lc.Name, err)
		}
	case LinkQueue:
		if address == "" {
			return Link{}, fmt.Errorf("link %q: queue name required", lc.Name)
		}
	}
	return Link{
		Name:       strings.TrimSpace(lc.Name),
		Kind:       kind,
		Address:    address,
		HostHeader: strings.TrimSpace(lc.HostHeader),
	}, nil
}

func buildRoute(rc RouteConfig, links map[string]Link) (Route, error) {
	name := strings.TrimSpace(rc.Name)
	if name == "" {
		return Route{}, fmt.Errorf("route with empty name")
	}
	prefix := strings.Trim(strings.TrimSpace(rc.Path), "/")
	if prefix == "" {
		return Route{}, fmt.Errorf("route %q: path required", name)
	}
	target, err := ParseRouteTarget(rc.RouteTo)
	if err != nil {
		return Route{}, fmt.Errorf("route %q: %w", name, err)
	}
	legacy, err := resolveLink(links, rc.LegacyLink)
	if err != nil {
		return Route{}, fmt.Errorf("route %q: legacy link: %w", name, err)
	}
	newSide, err := resolveLink(links, rc.NewLink)
	if err != nil {
		return Route{}, fmt.Errorf("route %q: new link: %w", name, err)
	}
	if rc.BodyDepth < 0 {
		return Route{}, fmt.Errorf("route %q: body depth must not be negative", name)
	}
	return Route{
		Name:       name,
		PathPrefix: prefix,
		SubPath:    strings.Trim(strings.TrimSpace(rc.SubPath), "/"),
		Legend:     strings.TrimSpace(rc.Legend),
		BodyDepth:  rc.BodyDepth,
		FromCds:    rc.FromCds,
		RouteTo:    target,
		Legacy:     legacy,
		New:        newSide,
	}, nil
}

func resolveLink(links map[string]Link, name string) (Link, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Link{Kind: LinkNone}, nil
	}
	link, ok := links[name]
	if !ok {
		return Link{}, fmt.Errorf("link %q does not exist", name)
	}
	return link, nil
}

func buildDestination(dc DestinationConfig) (Destination, error) {
	name := strings.TrimSpace(dc.Name)
	if name == "" {
		return Destination{}, fmt.Errorf("destination with empty name")
	}
	if err := validateAbsoluteURL(strings.TrimSpace(dc.URL)); err != nil {
		return Destination{}, fmt.Errorf("destination %q: %w", name, err)
	}
	method := strings.ToUpper(strings.TrimSpace(dc.Method))
	if method == "" {
		method = "POST"
	}
	return Destination{
		Name:        name,
		URL:         strings.TrimRight(strings.TrimSpace(dc.URL), "/"),
		Path:        strings.Trim(strings.TrimSpace(dc.Path), "/"),
		ContentType: strings.TrimSpace(dc.ContentType),
		Method:      method,
		HostHeader:  strings.TrimSpace(dc.HostHeader),
	}, nil
}

func validateAbsoluteURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("url %q: %w", raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("url %q must be absolute", raw)
	}
	return nil
}
