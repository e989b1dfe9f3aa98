package core

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// PluginSummary is the registry listing entry for one plugin.
type PluginSummary struct {
	PluginID    string `json:"plugin_id"`
	DisplayName string `json:"display_name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
}

// PluginDescriptor is the full registry record for one plugin.
type PluginDescriptor struct {
	PluginID      string          `json:"plugin_id"`
	DisplayName   string          `json:"display_name"`
	Version       string          `json:"version"`
	Services      []string        `json:"services,omitempty"`
	AgentsMD      string          `json:"agents_md,omitempty"`
	Status        string          `json:"status"`
	HealthMessage string          `json:"health_message,omitempty"`
	Dashboards    []DashboardLink `json:"dashboards,omitempty"`
}

// DashboardLink points at a served dashboard asset.
type DashboardLink struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// RegistryService provides plugin discovery to clients.
type RegistryService struct {
	plugins []Plugin
	mu      sync.RWMutex
}

func NewRegistryService(plugins []Plugin) *RegistryService {
	return &RegistryService{plugins: plugins}
}

func (r *RegistryService) ListPlugins() []PluginSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]PluginSummary, 0, len(r.plugins))
	for _, p := range r.plugins {
		manifest := p.Manifest()
		summaries = append(summaries, PluginSummary{
			PluginID:    manifest.PluginID,
			DisplayName: manifest.DisplayName,
			Version:     manifest.Version,
			Status:      string(p.Health()),
		})
	}
	return summaries
}

func (r *RegistryService) DescribePlugin(pluginID string) (PluginDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		manifest := p.Manifest()
		if manifest.PluginID != pluginID {
			continue
		}

		descriptor := PluginDescriptor{
			PluginID:      manifest.PluginID,
			DisplayName:   manifest.DisplayName,
			Version:       manifest.Version,
			Services:      manifest.Services,
			AgentsMD:      p.AgentsMD(),
			Status:        string(p.Health()),
			HealthMessage: p.HealthMessage(),
		}

		for _, d := range p.Dashboards() {
			descriptor.Dashboards = append(descriptor.Dashboards, DashboardLink{
				Name: d.Name,
				Path: "/dashboards/" + manifest.PluginID + "/" + d.Name + ".json",
			})
		}

		return descriptor, true
	}

	return PluginDescriptor{}, false
}

// RegisterHTTP mounts the registry JSON API on the mux.
func (r *RegistryService) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/api/registry/plugins", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{"plugins": r.ListPlugins()})
	})

	mux.HandleFunc("/api/registry/plugins/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		pluginID := strings.TrimPrefix(req.URL.Path, "/api/registry/plugins/")
		descriptor, ok := r.DescribePlugin(pluginID)
		if !ok {
			http.NotFound(w, req)
			return
		}
		writeJSON(w, map[string]any{"plugin": descriptor})
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
