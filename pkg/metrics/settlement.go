package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// SettlementMetrics counts wallet postings written at payment confirmation.
type SettlementMetrics struct {
	postings *prometheus.CounterVec
	amount   *prometheus.CounterVec
}

// NewSettlementMetrics registers settlement counters on reg. A nil registerer
// yields a no-op recorder.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_postings_total",
		Help: "Wallet entries posted by settlement.",
	}, []string{"scope"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_amount_total",
		Help: "Sum of wallet entry amounts posted by settlement.",
	}, []string{"scope"})
	reg.MustRegister(postings, amount)
	return &SettlementMetrics{postings: postings, amount: amount}
}

// ObservePosting records one posting for scope.
func (s *SettlementMetrics) ObservePosting(scope string, amount decimal.Decimal) {
	if s == nil || s.postings == nil {
		return
	}
	label := normalizeLabel(scope)
	s.postings.WithLabelValues(label).Inc()
	s.amount.WithLabelValues(label).Add(amount.InexactFloat64())
}
