package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "flightsurety/pkg/domain"
)

// Metrics provides observability for oracle consensus.
type Metrics struct {
	Responses           *prometheus.CounterVec
	Finalized           *prometheus.CounterVec
	ClosureFailures     prometheus.Counter
	SubmitDuration      prometheus.Histogram
	VotesAtFinalization prometheus.Histogram
}

// New registers the consensus metrics with reg. A nil reg uses the default
// Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Responses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_oracle_responses_total",
			Help: "Oracle responses by result (recorded, stale, rejected)",
		}, []string{"result"}),
		Finalized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_flights_finalized_total",
			Help: "Flights whose status reached quorum, by status code",
		}, []string{"status"}),
		ClosureFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_request_closure_failures_total",
			Help: "Quorums whose ledger closure failed and whose tally was discarded",
		}),
		SubmitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flightsurety_submit_response_duration_seconds",
			Help:    "Duration of SubmitResponse including closure",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		VotesAtFinalization: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flightsurety_votes_at_finalization",
			Help:    "Responder count of the winning code when a request closed",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
	}
}

func (m *Metrics) IncResponse(result string) {
	if m == nil {
		return
	}
	m.Responses.WithLabelValues(result).Inc()
}

func (m *Metrics) IncFinalized(code id.StatusCode, votes int) {
	if m == nil {
		return
	}
	m.Finalized.WithLabelValues(code.String()).Inc()
	m.VotesAtFinalization.Observe(float64(votes))
}

func (m *Metrics) IncClosureFailure() {
	if m == nil {
		return
	}
	m.ClosureFailures.Inc()
}

// ObserveSubmit records the duration of a SubmitResponse call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	if m == nil {
		return
	}
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}
