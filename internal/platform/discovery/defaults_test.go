package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultHTTPAddr(t *testing.T) {
	cases := map[string]string{
		ServiceGateway: "gateway:80",
		ServiceStudio:  "studio:5000",
		ServiceMCP:     "mcp:7080",
		ServiceJaeger:  "jaeger:16686",
	}
	for service, want := range cases {
		if got := DefaultHTTPAddr(service); got != want {
			t.Fatalf("DefaultHTTPAddr(%q) = %q, want %q", service, got, want)
		}
	}
}

func TestDefaultAdminAddr(t *testing.T) {
	if got := DefaultAdminAddr(ServiceGateway); got != "gateway:7070" {
		t.Fatalf("DefaultAdminAddr(%q) = %q, want %q", ServiceGateway, got, "gateway:7070")
	}
	if got := DefaultAdminAddr(ServiceStudio); got != "" {
		t.Fatalf("expected no admin addr for %q, got %q", ServiceStudio, got)
	}
}

func TestOrDefaultHTTPAddr(t *testing.T) {
	if got := OrDefaultHTTPAddr(" custom:9000 ", ServiceStudio); got != "custom:9000" {
		t.Fatalf("expected explicit http addr to win, got %q", got)
	}
	if got := OrDefaultHTTPAddr("", ServiceStudio); got != "studio:5000" {
		t.Fatalf("expected default http addr, got %q", got)
	}
}

func TestOrDefaultAdminAddr(t *testing.T) {
	if got := OrDefaultAdminAddr(" ops:7000 ", ServiceGateway); got != "ops:7000" {
		t.Fatalf("expected explicit admin addr to win, got %q", got)
	}
	if got := OrDefaultAdminAddr("", ServiceGateway); got != "gateway:7070" {
		t.Fatalf("expected default admin addr, got %q", got)
	}
}

func TestOrDefaultHTTPBaseURL(t *testing.T) {
	if got := OrDefaultHTTPBaseURL(" https://studio.example.com ", ServiceStudio); got != "https://studio.example.com" {
		t.Fatalf("expected explicit base url to win, got %q", got)
	}
	if got := OrDefaultHTTPBaseURL("", ServiceStudio); got != "http://studio:5000" {
		t.Fatalf("expected default studio base url, got %q", got)
	}
}

func TestDiscoveryDefaultsMatchTopologyCatalog(t *testing.T) {
	httpFromCatalog, adminFromCatalog := readTopologyPorts(t)

	for service, port := range httpFromCatalog {
		want := fmt.Sprintf("%s:%d", service, port)
		if got := DefaultHTTPAddr(service); got != want {
			t.Fatalf("catalog http default mismatch for %q: got %q, want %q", service, got, want)
		}
	}
	for service, port := range adminFromCatalog {
		want := fmt.Sprintf("%s:%d", service, port)
		if got := DefaultAdminAddr(service); got != want {
			t.Fatalf("catalog admin default mismatch for %q: got %q, want %q", service, got, want)
		}
	}

	for service := range httpPorts {
		if _, ok := httpFromCatalog[service]; !ok {
			t.Fatalf("http defaults include service %q not present in topology catalog", service)
		}
	}
	for service := range adminPorts {
		if _, ok := adminFromCatalog[service]; !ok {
			t.Fatalf("admin defaults include service %q not present in topology catalog", service)
		}
	}
}

func readTopologyPorts(t *testing.T) (map[string]int, map[string]int) {
	t.Helper()

	type topologyService struct {
		Name      string `json:"name"`
		HTTPPort  int    `json:"http_port"`
		AdminPort int    `json:"admin_port"`
	}
	type topologyCatalog struct {
		Services []topologyService `json:"services"`
	}

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("resolve caller path")
	}

	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", "..", ".."))
	data, err := os.ReadFile(filepath.Join(root, "topology", "services.json"))
	if err != nil {
		t.Fatalf("read topology/services.json: %v", err)
	}

	var parsed topologyCatalog
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("parse topology/services.json: %v", err)
	}

	httpPortsFromCatalog := make(map[string]int, len(parsed.Services))
	adminPortsFromCatalog := make(map[string]int, len(parsed.Services))
	for _, svc := range parsed.Services {
		if svc.HTTPPort > 0 {
			httpPortsFromCatalog[svc.Name] = svc.HTTPPort
		}
		if svc.AdminPort > 0 {
			adminPortsFromCatalog[svc.Name] = svc.AdminPort
		}
	}
	return httpPortsFromCatalog, adminPortsFromCatalog
}
