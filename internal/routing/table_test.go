package routing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewTableRejectsConfigurationDefects(t *testing.T) {
	cases := map[string]func(*Config){
		"missing link": func(c *Config) {
			c.Routes[0].LegacyLink = "not-there"
		},
		"relative url": func(c *Config) {
			c.Links[0].Address = "/just/a/path"
		},
		"empty url": func(c *Config) {
			c.Links[0].Address = ""
		},
		"bad link type": func(c *Config) {
			c.Links[0].Type = "teleport"
		},
		"bad route target": func(c *Config) {
			c.Routes[0].RouteTo = "sideways"
		},
		"empty route path": func(c *Config) {
			c.Routes[0].Path = "  "
		},
		"duplicate route": func(c *Config) {
			c.Routes[1].Name = c.Routes[0].Name
		},
		"duplicate link": func(c *Config) {
			c.Links[1].Name = c.Links[0].Name
		},
		"empty queue name": func(c *Config) {
			c.Links[1].Address = ""
		},
		"destination bad url": func(c *Config) {
			c.Destinations[0].URL = "comparer.example.com"
		},
		"negative body depth": func(c *Config) {
			c.Routes[0].BodyDepth = -1
		},
	}
	for name, corrupt := range cases {
		cfg := testConfig()
		corrupt(&cfg)
		_, err := NewTable(cfg)
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		var tableErr TableError
		if !errors.As(err, &tableErr) {
			t.Errorf("%s: expected TableError, got %T", name, err)
		}
	}
}

func TestDestinationLookup(t *testing.T) {
	table := mustTable(t)
	dest, ok := table.Destination("BtmsCds")
	if !ok {
		t.Fatalf("destination BtmsCds missing")
	}
	if dest.URL != "https://comparer.example.com" || dest.Path != "comparer/cds" || dest.Method != "PUT" {
		t.Errorf("destination = %+v", dest)
	}
	if _, ok := table.Destination("Absent"); ok {
		t.Errorf("unexpected destination")
	}
}

func TestDestinationMethodDefaultsToPost(t *testing.T) {
	cfg := testConfig()
	cfg.Destinations[0].Method = ""
	table, err := NewTable(cfg)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	dest, _ := table.Destination("BtmsCds")
	if dest.Method != "POST" {
		t.Errorf("method %q", dest.Method)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	content := `routes:
  - name: cds-clearance
    path: /ws/cds/alvsclearance/v1
    legend: CDS Clearance
    sub-path: ALVSClearanceRequest
    body-depth: 1
    from-cds: true
    route-to: legacy
    legacy-link: alvs
    new-link: btms
links:
  - name: alvs
    type: url
    address: https://alvs.example.com/ws
  - name: btms
    type: queue
    address: btms_inbound
destinations:
  - name: BtmsDecisionComparer
    url: https://comparer.example.com
    path: comparer/decisions
    content-type: application/soap+xml
    method: PUT
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(table.Routes()) != 1 {
		t.Fatalf("routes = %d", len(table.Routes()))
	}
	route := table.Routes()[0]
	if route.PathPrefix != "ws/cds/alvsclearance/v1" || route.Legacy.Name != "alvs" || route.New.Kind != LinkQueue {
		t.Errorf("route = %+v", route)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("routes: {not valid"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	var tableErr TableError
	if _, err := LoadFile(bad); !errors.As(err, &tableErr) {
		t.Errorf("expected TableError for malformed yaml, got %v", err)
	}
}
