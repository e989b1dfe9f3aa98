package ariston

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/velishub/velishub/internal/core"
)

// MetricsCollector renders the poll loop's heater snapshots as
// Prometheus metrics. Scrapes never hit the vendor API.
type MetricsCollector struct {
	service *Service

	temperature *prometheus.GaugeVec
	target      *prometheus.GaugeVec
	powerOn     *prometheus.GaugeVec
	ecoOn       *prometheus.GaugeVec
	scheduleOn  *prometheus.GaugeVec
	available   *prometheus.GaugeVec
	lastUpdated *prometheus.GaugeVec
	healthy     prometheus.Gauge
}

func NewMetricsCollector(service *Service) *MetricsCollector {
	labels := []string{"gateway_id", "plant_name"}
	return &MetricsCollector{
		service: service,
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "velishub_ariston_temperature_celsius",
			Help: "Current water temperature per plant (celsius)",
		}, labels),
		target: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "velishub_ariston_target_temperature_celsius",
			Help: "Requested water temperature per plant (celsius)",
		}, labels),
		powerOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "velishub_ariston_power_on",
			Help: "Heater power state per plant (1=on, 0=off)",
		}, labels),
		ecoOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "velishub_ariston_eco_on",
			Help: "Eco mode per plant (1=on, 0=off)",
		}, labels),
		scheduleOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "velishub_ariston_schedule_on",
			Help: "Schedule mode per plant (1=on, 0=off)",
		}, labels),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "velishub_ariston_available",
			Help: "Plant availability per last poll (1=available, 0=unavailable)",
		}, labels),
		lastUpdated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "velishub_ariston_last_update_timestamp_seconds",
			Help: "Last successful poll timestamp per plant (epoch seconds)",
		}, labels),
		healthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "velishub_ariston_plugin_healthy",
			Help: "Plugin health (1=healthy, 0=degraded or error)",
		}),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.temperature.Describe(ch)
	c.target.Describe(ch)
	c.powerOn.Describe(ch)
	c.ecoOn.Describe(ch)
	c.scheduleOn.Describe(ch)
	c.available.Describe(ch)
	c.lastUpdated.Describe(ch)
	c.healthy.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.temperature.Reset()
	c.target.Reset()
	c.powerOn.Reset()
	c.ecoOn.Reset()
	c.scheduleOn.Reset()
	c.available.Reset()
	c.lastUpdated.Reset()

	for _, snapshot := range c.service.Snapshots() {
		labels := prometheus.Labels{
			"gateway_id": snapshot.GatewayID,
			"plant_name": snapshot.Name,
		}
		c.available.With(labels).Set(boolGauge(snapshot.Available))
		if snapshot.Available {
			c.temperature.With(labels).Set(snapshot.Temperature)
			c.target.With(labels).Set(snapshot.TargetTemperature)
			c.powerOn.With(labels).Set(boolGauge(snapshot.On))
			c.ecoOn.With(labels).Set(boolGauge(snapshot.Eco))
			c.scheduleOn.With(labels).Set(boolGauge(snapshot.Mode == ModeSchedule))
		}
		if !snapshot.UpdatedAt.IsZero() {
			c.lastUpdated.With(labels).Set(float64(snapshot.UpdatedAt.Unix()))
		}
	}

	c.healthy.Set(boolGauge(c.service.Health() == core.HealthHealthy))

	c.temperature.Collect(ch)
	c.target.Collect(ch)
	c.powerOn.Collect(ch)
	c.ecoOn.Collect(ch)
	c.scheduleOn.Collect(ch)
	c.available.Collect(ch)
	c.lastUpdated.Collect(ch)
	c.healthy.Collect(ch)
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
