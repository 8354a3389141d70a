package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "listingz"

// DomainMetrics counts marketplace state changes. The zero value and a nil
// pointer are both safe no-ops.
type DomainMetrics struct {
	settlements      *prometheus.CounterVec
	inventoryCredits *prometheus.CounterVec
	inventoryDebits  *prometheus.CounterVec
	sweepTransitions *prometheus.CounterVec
	reportThresholds prometheus.Counter
}

// NewDomainMetrics registers the domain counters on reg.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_settlements_total",
			Help:      "Payment confirmations processed, by source and outcome.",
		}, []string{"source", "outcome"}),
		inventoryCredits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_credited_units_total",
			Help:      "Listing units credited to user inventory, by tier.",
		}, []string{"tier"}),
		inventoryDebits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_debited_units_total",
			Help:      "Listing units consumed by approvals, by tier.",
		}, []string{"tier"}),
		sweepTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_sweep_transitions_total",
			Help:      "Listings moved by the expiration sweep, by target status.",
		}, []string{"status"}),
		reportThresholds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_report_threshold_total",
			Help:      "Listings sent back to review after crossing the report threshold.",
		}),
	}
	reg.MustRegister(m.settlements, m.inventoryCredits, m.inventoryDebits, m.sweepTransitions, m.reportThresholds)
	return m
}

// Settlement outcomes.
const (
	OutcomeSettled  = "settled"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

func (m *DomainMetrics) IncSettlement(source, outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(label(source), label(outcome)).Inc()
}

func (m *DomainMetrics) AddInventoryCredit(tier string, units int) {
	if m == nil || m.inventoryCredits == nil || units <= 0 {
		return
	}
	m.inventoryCredits.WithLabelValues(label(tier)).Add(float64(units))
}

func (m *DomainMetrics) AddInventoryDebit(tier string, units int) {
	if m == nil || m.inventoryDebits == nil || units <= 0 {
		return
	}
	m.inventoryDebits.WithLabelValues(label(tier)).Add(float64(units))
}

func (m *DomainMetrics) AddSweepTransitions(status string, n int) {
	if m == nil || m.sweepTransitions == nil || n <= 0 {
		return
	}
	m.sweepTransitions.WithLabelValues(label(status)).Add(float64(n))
}

func (m *DomainMetrics) IncReportThreshold() {
	if m == nil || m.reportThresholds == nil {
		return
	}
	m.reportThresholds.Inc()
}
