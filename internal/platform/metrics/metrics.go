package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP surface metrics.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	Throttled       *prometheus.CounterVec
	Panics          prometheus.Counter
}

// New creates and registers the HTTP metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flightsurety_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		Throttled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_http_throttled_total",
			Help: "Requests rejected by the per-caller rate limiter",
		}, []string{"route"}),
		Panics: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_http_panics_total",
			Help: "Handler panics recovered by the server",
		}),
	}
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) IncrementThrottled(route string) {
	if m == nil {
		return
	}
	m.Throttled.WithLabelValues(route).Inc()
}

func (m *Metrics) IncrementPanics() {
	if m == nil {
		return
	}
	m.Panics.Inc()
}
