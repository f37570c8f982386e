// Package metrics exposes Prometheus collectors for the invoicing engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// NumbersAllocated counts allocation attempts by outcome (ok, contention, error).
	NumbersAllocated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devinvoice",
		Subsystem: "sequence",
		Name:      "allocations_total",
		Help:      "Invoice number allocations by outcome.",
	}, []string{"outcome"})

	// SequenceConflicts counts lost compare-and-swap or insert races.
	SequenceConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devinvoice",
		Subsystem: "sequence",
		Name:      "conflicts_total",
		Help:      "Compare-and-swap conflicts on sequence buckets.",
	})

	// StatusTransitions counts effective invoice status changes.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devinvoice",
		Subsystem: "invoice",
		Name:      "status_transitions_total",
		Help:      "Invoice status transitions.",
	}, []string{"from", "to"})

	// InvoicesCreated counts persisted invoices.
	InvoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devinvoice",
		Subsystem: "invoice",
		Name:      "created_total",
		Help:      "Invoices created.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "devinvoice",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "pattern", "code"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one served request.
func ObserveRequest(method, pattern string, code int, elapsed time.Duration) {
	if pattern == "" {
		pattern = "unmatched"
	}
	requestDuration.WithLabelValues(method, pattern, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
