package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the checkout's Prometheus collectors.
type Metrics struct {
	ProcessorCalls    *prometheus.CounterVec
	ProcessorDuration *prometheus.HistogramVec
	CheckoutResults   *prometheus.CounterVec
	CaptureOutcomes   *prometheus.CounterVec
	RefundResults     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProcessorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "processor",
			Name:      "calls_total",
			Help:      "Card processor calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ProcessorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkout",
			Subsystem: "processor",
			Name:      "call_duration_seconds",
			Help:      "Card processor call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		CheckoutResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "results_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		CaptureOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "deferred_capture_outcomes_total",
			Help:      "Lifecycle events handled by the deferred capture listener, by outcome.",
		}, []string{"outcome"}),
		RefundResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "refund_results_total",
			Help:      "Refund attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.ProcessorCalls,
		m.ProcessorDuration,
		m.CheckoutResults,
		m.CaptureOutcomes,
		m.RefundResults,
	)
	return m
}

// Result labels an operation outcome by its error code, or "success".
func Result(code string, err error) string {
	if err == nil {
		return "success"
	}
	if code == "" {
		return "error"
	}
	return code
}
