package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RegistrationMetrics records lifecycle outcomes and best-effort side-effect failures.
type RegistrationMetrics struct {
	outcomes     *prometheus.CounterVec
	sideEffects  *prometheus.CounterVec
	outboundCall *prometheus.CounterVec
	outboundTime *prometheus.HistogramVec
}

// NewRegistrationMetrics registers the registration metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewRegistrationMetrics(reg prometheus.Registerer) *RegistrationMetrics {
	if reg == nil {
		return &RegistrationMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_outcomes_total",
		Help: "Registration lifecycle operations by operation and outcome code.",
	}, []string{"op", "outcome"})
	sideEffects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_side_effect_failures_total",
		Help: "Best-effort side effects that failed after a committed state change.",
	}, []string{"effect"})
	outboundCall := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_calls_total",
		Help: "Calls to the chat platform by call name and result.",
	}, []string{"call", "result"})
	outboundTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbound_call_duration_seconds",
		Help:    "Duration of chat platform calls including limiter waits and retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"call"})
	reg.MustRegister(outcomes, sideEffects, outboundCall, outboundTime)
	return &RegistrationMetrics{
		outcomes:     outcomes,
		sideEffects:  sideEffects,
		outboundCall: outboundCall,
		outboundTime: outboundTime,
	}
}

// IncOutcome counts one finished lifecycle operation.
func (m *RegistrationMetrics) IncOutcome(op, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// IncSideEffectFailure counts a failed notification, access change or event publish.
func (m *RegistrationMetrics) IncSideEffectFailure(effect string) {
	if m == nil || m.sideEffects == nil {
		return
	}
	m.sideEffects.WithLabelValues(normalizeLabel(effect)).Inc()
}

// ObserveOutbound records one outbound call.
func (m *RegistrationMetrics) ObserveOutbound(call string, err error, duration time.Duration) {
	if m == nil || m.outboundCall == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	call = normalizeLabel(call)
	m.outboundCall.WithLabelValues(call, result).Inc()
	m.outboundTime.WithLabelValues(call).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
