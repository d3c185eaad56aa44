// Package metrics exposes the Prometheus collectors of the POS service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	gatewayOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seat_pos",
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Persistence operations by outcome (ok, degraded, failed).",
		},
		[]string{"op", "collection", "outcome"},
	)

	payments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "seat_pos",
			Subsystem: "orders",
			Name:      "payments_total",
			Help:      "Completed seat payments.",
		},
	)

	paidAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "seat_pos",
			Subsystem: "orders",
			Name:      "paid_amount_total",
			Help:      "Sum of completed payments in the smallest currency unit.",
		},
	)

	dayTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seat_pos",
			Subsystem: "business",
			Name:      "transitions_total",
			Help:      "Business day status transitions.",
		},
		[]string{"to"},
	)

	rollovers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "seat_pos",
			Subsystem: "business",
			Name:      "rollovers_total",
			Help:      "Detected calendar day rollovers.",
		},
	)
)

func init() {
	Registry.MustRegister(gatewayOperations, payments, paidAmount, dayTransitions, rollovers)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordGateway counts one persistence operation.
func RecordGateway(op, collection, outcome string) {
	gatewayOperations.WithLabelValues(op, collection, outcome).Inc()
}

// RecordPayment counts a completed payment and its amount.
func RecordPayment(amount int64) {
	payments.Inc()
	if amount > 0 {
		paidAmount.Add(float64(amount))
	}
}

// RecordTransition counts a business day status change.
func RecordTransition(to string) {
	dayTransitions.WithLabelValues(to).Inc()
}

// RecordRollover counts a detected day change.
func RecordRollover() {
	rollovers.Inc()
}
