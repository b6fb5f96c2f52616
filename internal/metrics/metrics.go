package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric the orchestrator publishes. Per-frame
// pipeline accounting lives in each recording's timing CSV instead:
// the pipelines run inside module child processes, which don't host
// this registry. A single Registry is constructed at startup and threaded
// through to whatever component needs to record a value; nothing here
// is a package-level global so tests can use an isolated registry.
type Registry struct {
	reg *prometheus.Registry

	DiscoverySweepDuration *prometheus.HistogramVec
	DevicesConnected       *prometheus.GaugeVec
	RESTRequestsTotal      *prometheus.CounterVec
	RESTRequestDuration    *prometheus.HistogramVec
	ModuleInstancesRunning prometheus.Gauge
	TrialsStartedTotal     prometheus.Counter
}

// New builds a Registry with every metric pre-registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		DiscoverySweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sessionctl",
			Name:      "discovery_sweep_duration_seconds",
			Help:      "Time taken by one device-discovery driver sweep.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"driver"}),
		DevicesConnected: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sessionctl",
			Name:      "devices_connected",
			Help:      "Currently connected devices per module family.",
		}, []string{"family"}),
		RESTRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionctl",
			Name:      "api_requests_total",
			Help:      "REST control-plane requests by route and status code.",
		}, []string{"route", "code"}),
		RESTRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sessionctl",
			Name:      "api_request_duration_seconds",
			Help:      "REST control-plane request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ModuleInstancesRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sessionctl",
			Name:      "module_instances_running",
			Help:      "Module child processes currently in the RUNNING state.",
		}),
		TrialsStartedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionctl",
			Name:      "trials_started_total",
			Help:      "Trials started across the lifetime of this orchestrator process.",
		}),
	}
}

// Gatherer exposes the underlying prometheus.Gatherer for the
// /metrics handler.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
