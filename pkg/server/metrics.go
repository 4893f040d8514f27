package server

import (
	"net/http"

	"github.com/ManouchehrRasoulli/hotserve/internal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	endpointNotify = "notify"
	endpointIndex  = "index"
	endpointGlob   = "glob"
	endpointStatic = "static"
)

// Metrics holds the server's collectors on a private registry so several
// servers can live in one process.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	streams   prometheus.Gauge
	events    *prometheus.CounterVec
	dropped   prometheus.Counter
	globFiles prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hotserve",
			Name:      "requests_total",
			Help:      "Requests handled, by endpoint.",
		}, []string{"endpoint"}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hotserve",
			Name:      "notify_streams",
			Help:      "Open change notification streams.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hotserve",
			Name:      "watch_events_total",
			Help:      "Classified filesystem events, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotserve",
			Name:      "notify_dropped_total",
			Help:      "Notification streams closed because the client fell behind.",
		}),
		globFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotserve",
			Name:      "glob_files_total",
			Help:      "Files streamed by the glob endpoint.",
		}),
	}

	m.registry.MustRegister(m.requests, m.streams, m.events, m.dropped, m.globFiles)
	return m
}

func (m *Metrics) request(endpoint string) {
	m.requests.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) watchEvent(e internal.WatchEvent) {
	m.events.WithLabelValues(string(e.Kind)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
