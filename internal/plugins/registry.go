package plugins

import (
	"github.com/velishub/velishub/internal/config"
	"github.com/velishub/velishub/internal/core"
	"github.com/velishub/velishub/internal/history"
	"github.com/velishub/velishub/internal/logging"
	"github.com/velishub/velishub/internal/session"
)

// Deps carries the hub facilities shared by every plugin.
type Deps struct {
	SessionStore *session.Store
	History      *history.Repo
	Logger       *logging.Logger
}

// Factory builds a plugin instance from the loaded config. It returns
// false when the config does not enable the plugin.
type Factory func(*config.Config, Deps) (core.Plugin, bool)

var compiled []Factory

// Register adds a compiled-in plugin factory to the registry.
func Register(factory Factory) {
	compiled = append(compiled, factory)
}

// Compiled returns the configured plugin instances for this build.
func Compiled(cfg *config.Config, deps Deps) []core.Plugin {
	if cfg == nil {
		return nil
	}
	out := make([]core.Plugin, 0, len(compiled))
	for _, factory := range compiled {
		plugin, ok := factory(cfg, deps)
		if !ok {
			continue
		}
		out = append(out, plugin)
	}
	return out
}
