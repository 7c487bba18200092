package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the insurance escrow.
type Metrics struct {
	PoliciesSold    prometheus.Counter
	PoliciesSettled *prometheus.CounterVec
	Withdrawals     prometheus.Counter
	SettleFailures  prometheus.Counter
}

// New registers the escrow metrics with reg. A nil reg uses the default
// Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		PoliciesSold: factory.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_insurance_purchases_total",
			Help: "Accepted insurance purchases",
		}),
		PoliciesSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_policies_settled_total",
			Help: "Policies settled, by whether they were credited",
		}, []string{"credited"}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_withdrawals_total",
			Help: "Completed passenger withdrawals",
		}),
		SettleFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_settlement_failures_total",
			Help: "Settlement attempts that failed and must be retried",
		}),
	}
}

func (m *Metrics) IncPurchase() {
	if m == nil {
		return
	}
	m.PoliciesSold.Inc()
}

func (m *Metrics) AddSettled(credited, zero int) {
	if m == nil {
		return
	}
	m.PoliciesSettled.WithLabelValues("true").Add(float64(credited))
	m.PoliciesSettled.WithLabelValues("false").Add(float64(zero))
}

func (m *Metrics) IncWithdrawal() {
	if m == nil {
		return
	}
	m.Withdrawals.Inc()
}

func (m *Metrics) IncSettleFailure() {
	if m == nil {
		return
	}
	m.SettleFailures.Inc()
}
