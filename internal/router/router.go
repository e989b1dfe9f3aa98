package router

import (
	"net/http"

	"github.com/velishub/velishub/internal/core"
)

// RegisterPlugins mounts the registry and plugin surfaces on the mux.
func RegisterPlugins(mux *http.ServeMux, plugins []core.Plugin) {
	core.NewRegistryService(plugins).RegisterHTTP(mux)

	for _, p := range plugins {
		p.RegisterHTTP(mux)
	}
}
