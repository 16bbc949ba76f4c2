package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	treeBuilds   *prometheus.CounterVec
	treeDuration prometheus.Histogram
	members      prometheus.Gauge
	requests     *prometheus.CounterVec
}

// NewMetrics registers the silsilah collectors plus the Go runtime and
// process collectors on a new registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		// Labels: the root strategy reported by the tree builder.
		treeBuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "silsilah_tree_builds_total",
			Help: "Family trees built, by root strategy",
		}, []string{"strategy"}),
		treeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "silsilah_tree_build_duration_seconds",
			Help:    "Time to load members and build the family tree",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		members: factory.NewGauge(prometheus.GaugeOpts{
			Name: "silsilah_members",
			Help: "Members in the most recent snapshot",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "silsilah_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"route", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeTree(strategy string, d time.Duration, members int) {
	m.treeBuilds.WithLabelValues(strategy).Inc()
	m.treeDuration.Observe(d.Seconds())
	m.members.Set(float64(members))
}
