package ariston

import (
	"context"
	_ "embed"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velishub/velishub/internal/config"
	"github.com/velishub/velishub/internal/core"
	"github.com/velishub/velishub/internal/history"
	"github.com/velishub/velishub/internal/logging"
	"github.com/velishub/velishub/internal/session"
)

//go:embed AGENTS.md
var agentsMD string

//go:embed dashboard.json
var dashboardJSON []byte

// Plugin implements the velishub plugin contract.
type Plugin struct {
	service       *Service
	publisher     *statusPublisher
	health        core.HealthStatus
	healthMessage string
}

// Deps carries hub-level facilities the plugin wires into its service.
type Deps struct {
	SessionStore *session.Store
	History      *history.Repo
	MQTT         *config.MQTTConfig
	Logger       *logging.Logger
}

// NewPlugin constructs an Ariston plugin from hub configuration.
func NewPlugin(hubCfg *config.AristonConfig, deps Deps) *Plugin {
	cfg, err := ConfigFromHub(hubCfg)
	if err != nil {
		return &Plugin{health: core.HealthError, healthMessage: err.Error()}
	}

	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}

	client, err := NewClient(cfg, deps.SessionStore, log)
	if err != nil {
		return &Plugin{health: core.HealthError, healthMessage: err.Error()}
	}

	var publisher *statusPublisher
	if deps.MQTT != nil {
		publisher, err = newStatusPublisher(deps.MQTT)
		if err != nil {
			log.Warnw("mqtt publisher unavailable", "error", err)
			publisher = nil
		}
	}

	service := NewService(client, cfg, deps.History, publisher, log)
	return &Plugin{service: service, publisher: publisher, health: core.HealthHealthy}
}

// Start begins the heater poll loop. It returns once bootstrap finishes.
func (p *Plugin) Start(ctx context.Context) {
	if p.service != nil {
		p.service.Start(ctx)
	}
}

// Stop releases the plugin's broker connection.
func (p *Plugin) Stop() {
	if p.publisher != nil {
		p.publisher.close()
	}
}

func (p *Plugin) ID() string {
	return "ariston"
}

func (p *Plugin) Manifest() core.Manifest {
	return core.Manifest{
		PluginID:    "ariston",
		DisplayName: "Ariston Velis",
		Version:     "0.1.0",
		Services:    []string{"velishub.plugins.ariston.v1.HeaterService"},
	}
}

func (p *Plugin) AgentsMD() string {
	return agentsMD
}

func (p *Plugin) Dashboards() []core.Dashboard {
	return []core.Dashboard{{Name: "ariston-overview", JSON: dashboardJSON}}
}

func (p *Plugin) RegisterHTTP(mux *http.ServeMux) {
	if p.service != nil {
		p.service.RegisterHTTP(mux)
	}
}

func (p *Plugin) Collectors() []prometheus.Collector {
	if p.service == nil {
		return nil
	}
	return []prometheus.Collector{NewMetricsCollector(p.service)}
}

func (p *Plugin) Health() core.HealthStatus {
	if p.service != nil {
		return p.service.Health()
	}
	return p.health
}

func (p *Plugin) HealthMessage() string {
	if p.service != nil {
		return p.service.HealthMessage()
	}
	return p.healthMessage
}
