package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	machines prometheus.Gauge
	requests *prometheus.CounterVec
	stops    *prometheus.CounterVec
	steps    prometheus.Counter
	sweeps   prometheus.Counter
	runTime  prometheus.Histogram
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		machines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "intcode_machines",
			Help: "Number of live machines held by the server",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intcode_requests_total",
			Help: "Machine service requests by procedure and result code",
		}, []string{"procedure", "code"}),
		stops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intcode_stops_total",
			Help: "Machine run stops by kind",
		}, []string{"kind"}),
		steps: factory.NewCounter(prometheus.CounterOpts{
			Name: "intcode_steps_total",
			Help: "Instructions executed by served machines",
		}),
		sweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "intcode_swept_machines_total",
			Help: "Machines removed after their idle TTL expired",
		}),
		runTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "intcode_run_duration_seconds",
			Help:    "Wall time of Run and Drain requests",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) setMachines(n int) {
	if m != nil {
		m.machines.Set(float64(n))
	}
}

func (m *Metrics) request(procedure, code string) {
	if m != nil {
		m.requests.WithLabelValues(procedure, code).Inc()
	}
}

func (m *Metrics) stop(kind string, steps uint64, seconds float64) {
	if m != nil {
		m.stops.WithLabelValues(kind).Inc()
		m.steps.Add(float64(steps))
		m.runTime.Observe(seconds)
	}
}

func (m *Metrics) swept(n int) {
	if m != nil {
		m.sweeps.Add(float64(n))
	}
}
