package plugins

import (
	"github.com/velishub/velishub/internal/config"
	"github.com/velishub/velishub/internal/core"
	"github.com/velishub/velishub/plugins/ariston"
)

func init() {
	Register(func(cfg *config.Config, deps Deps) (core.Plugin, bool) {
		if cfg.Ariston == nil {
			return nil, false
		}
		return ariston.NewPlugin(cfg.Ariston, ariston.Deps{
			SessionStore: deps.SessionStore,
			History:      deps.History,
			MQTT:         cfg.MQTT,
			Logger:       deps.Logger,
		}), true
	})
}
