package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics provides observability for the collection module.
type Metrics struct {
	// Collections recorded by channel and payment method
	Recorded *prometheus.CounterVec

	// Collections validated by district
	Validated *prometheus.CounterVec

	// Validated revenue in cedis by district
	Revenue *prometheus.CounterVec

	// Flags raised by risk level
	Flagged *prometheus.CounterVec
}

// New registers the collection metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "revenuehub_collections_recorded_total",
			Help: "Collections recorded by channel and payment method",
		}, []string{"channel", "method"}), // channel: "collector", "owner"

		Validated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "revenuehub_collections_validated_total",
			Help: "Collections validated as paid by district",
		}, []string{"district"}),

		Revenue: f.NewCounterVec(prometheus.CounterOpts{
			Name: "revenuehub_revenue_validated_cedis_total",
			Help: "Validated revenue amount in cedis by district",
		}, []string{"district"}),

		Flagged: f.NewCounterVec(prometheus.CounterOpts{
			Name: "revenuehub_collections_flagged_total",
			Help: "Collections flagged as irregular by risk level",
		}, []string{"risk_level"}),
	}
}

func (m *Metrics) IncrementRecorded(channel, method string) {
	if m != nil {
		m.Recorded.WithLabelValues(channel, method).Inc()
	}
}

// ObserveValidated counts a validation and adds its amount to the revenue total.
func (m *Metrics) ObserveValidated(district string, amount decimal.Decimal) {
	if m != nil {
		m.Validated.WithLabelValues(district).Inc()
		m.Revenue.WithLabelValues(district).Add(amount.InexactFloat64())
	}
}

func (m *Metrics) IncrementFlagged(risk string) {
	if m != nil {
		m.Flagged.WithLabelValues(risk).Inc()
	}
}
