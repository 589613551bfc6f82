package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the fulfillment counters. All methods are safe on a nil receiver.
type Metrics struct {
	DonationsCreated    prometheus.Counter
	Transitions         *prometheus.CounterVec
	RejectedTransitions *prometheus.CounterVec
	OTPChecks           *prometheus.CounterVec
	RegistryChanges     *prometheus.CounterVec
}

// New registers on the default registry; call it once per process.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DonationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "donation_created_total",
			Help: "Donations created",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_transitions_total",
			Help: "Applied donation status transitions",
		}, []string{"from", "to"}),
		RejectedTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_transitions_rejected_total",
			Help: "Rejected donation status transitions by reason",
		}, []string{"reason"}),
		OTPChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_otp_checks_total",
			Help: "Delivery OTP verifications by result",
		}, []string{"result"}),
		RegistryChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_changes_total",
			Help: "Institute request and volunteer opportunity changes",
		}, []string{"entity", "status"}),
	}
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.DonationsCreated.Inc()
	}
}

func (m *Metrics) IncTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncRejected(reason string) {
	if m != nil {
		m.RejectedTransitions.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncOTPCheck(ok bool) {
	if m == nil {
		return
	}
	result := "mismatch"
	if ok {
		result = "match"
	}
	m.OTPChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRegistry(entity, status string) {
	if m != nil {
		m.RegistryChanges.WithLabelValues(entity, status).Inc()
	}
}
