package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type stubPlugin struct {
	id            string
	name          string
	version       string
	services      []string
	dashboards    []Dashboard
	agents        string
	health        HealthStatus
	healthMessage string
}

func (s stubPlugin) ID() string { return s.id }

func (s stubPlugin) Manifest() Manifest {
	return Manifest{
		PluginID:    s.id,
		DisplayName: s.name,
		Version:     s.version,
		Services:    s.services,
	}
}

func (s stubPlugin) AgentsMD() string { return s.agents }

func (s stubPlugin) Dashboards() []Dashboard { return s.dashboards }

func (s stubPlugin) RegisterHTTP(*http.ServeMux) {}

func (s stubPlugin) Collectors() []prometheus.Collector { return nil }

func (s stubPlugin) Health() HealthStatus { return s.health }

func (s stubPlugin) HealthMessage() string { return s.healthMessage }

func newStubPlugin(id string) stubPlugin {
	return stubPlugin{
		id:         id,
		name:       "Demo",
		version:    "0.1.0",
		services:   []string{"velishub.plugins.demo.v1.DemoService"},
		agents:     "demo agents",
		health:     HealthHealthy,
		dashboards: []Dashboard{{Name: "demo", JSON: []byte("{}")}},
	}
}

func TestRegistryListPlugins(t *testing.T) {
	plugin := newStubPlugin("demo")
	svc := NewRegistryService([]Plugin{plugin})

	summaries := svc.ListPlugins()
	if len(summaries) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(summaries))
	}
	if summaries[0].PluginID != "demo" {
		t.Fatalf("unexpected plugin id: %s", summaries[0].PluginID)
	}
	if summaries[0].Status != string(HealthHealthy) {
		t.Fatalf("unexpected status: %s", summaries[0].Status)
	}
}

func TestRegistryDescribePlugin(t *testing.T) {
	plugin := newStubPlugin("demo")
	svc := NewRegistryService([]Plugin{plugin})

	descriptor, ok := svc.DescribePlugin("demo")
	if !ok {
		t.Fatalf("expected plugin to be found")
	}
	if descriptor.AgentsMD != "demo agents" {
		t.Fatalf("unexpected agents md: %s", descriptor.AgentsMD)
	}
	if len(descriptor.Dashboards) != 1 || descriptor.Dashboards[0].Path != "/dashboards/demo/demo.json" {
		t.Fatalf("unexpected dashboards: %+v", descriptor.Dashboards)
	}

	if _, ok := svc.DescribePlugin("missing"); ok {
		t.Fatalf("expected missing plugin to not be found")
	}
}

func TestRegistryHTTP(t *testing.T) {
	svc := NewRegistryService([]Plugin{newStubPlugin("demo")})
	mux := http.NewServeMux()
	svc.RegisterHTTP(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/registry/plugins", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var listResp struct {
		Plugins []PluginSummary `json:"plugins"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Plugins) != 1 || listResp.Plugins[0].PluginID != "demo" {
		t.Fatalf("unexpected list response: %+v", listResp)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/registry/plugins/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing plugin, got %d", rec.Code)
	}
}

func TestValidatePlugins(t *testing.T) {
	if err := ValidatePlugins([]Plugin{newStubPlugin("demo")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ValidatePlugins([]Plugin{newStubPlugin("demo"), newStubPlugin("demo")}); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	if err := ValidatePlugins([]Plugin{newStubPlugin("Bad-ID")}); err == nil {
		t.Fatalf("expected invalid id error")
	}
}
