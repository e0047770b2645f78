package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	HTTPDuration         *prometheus.HistogramVec
	ConsentTransitions   *prometheus.CounterVec
	DisclosuresServed    prometheus.Counter
	EligibilityOutcomes  *prometheus.CounterVec
	AuditAppendFailures  prometheus.Counter
	IdentitiesIssued     prometheus.Counter
	IssuanceCollisions   prometheus.Counter
	IdempotentReplays    prometheus.Counter
	OutboxRelayPublished prometheus.Counter
	OutboxRelayFailures  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agripass_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		ConsentTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agripass_consent_transitions_total",
			Help: "Consent request state transitions by action",
		}, []string{"action"}),
		DisclosuresServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agripass_disclosures_served_total",
			Help: "Partial views produced by the disclosure projector",
		}),
		EligibilityOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agripass_eligibility_outcomes_total",
			Help: "Eligibility decisions by outcome",
		}, []string{"outcome"}),
		AuditAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agripass_audit_append_failures_total",
			Help: "Audit trail writes that failed and aborted their operation",
		}),
		IdentitiesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agripass_identities_issued_total",
			Help: "Agri-IDs issued",
		}),
		IssuanceCollisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agripass_issuance_collisions_total",
			Help: "Identifier candidates discarded due to collision",
		}),
		IdempotentReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agripass_audit_idempotent_replays_total",
			Help: "Audit emissions suppressed by the idempotency key",
		}),
		OutboxRelayPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agripass_audit_relay_published_total",
			Help: "Outbox entries shipped to the reporting topic",
		}),
		OutboxRelayFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agripass_audit_relay_failures_total",
			Help: "Outbox relay publish failures",
		}),
	}
}

// ObserveHTTP records a completed HTTP request.
func (m *Metrics) ObserveHTTP(route, status string, d time.Duration) {
	m.HTTPDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// IncConsentTransition records a consent state transition.
func (m *Metrics) IncConsentTransition(action string) {
	m.ConsentTransitions.WithLabelValues(action).Inc()
}

// IncEligibilityOutcome records an eligibility decision.
func (m *Metrics) IncEligibilityOutcome(outcome string) {
	m.EligibilityOutcomes.WithLabelValues(outcome).Inc()
}
