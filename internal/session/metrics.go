package session

import "github.com/prometheus/client_golang/prometheus"

var (
	persistSuccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velishub_session_persist_success_total",
			Help: "Successful session state writes",
		},
		[]string{"provider"},
	)
	persistFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velishub_session_persist_failure_total",
			Help: "Failed session state writes",
		},
		[]string{"provider"},
	)
	remotePersistOK = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "velishub_session_remote_persist_ok",
			Help: "Remote blob persistence health (1=ok, 0=error)",
		},
		[]string{"provider"},
	)
)

// MetricsCollectors returns collectors for the shared session module.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		persistSuccess,
		persistFailure,
		remotePersistOK,
	}
}
