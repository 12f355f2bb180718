package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "posflow"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route", "method"})

	orderTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Order status transitions committed, by source and target status.",
	}, []string{"from", "to"})

	dispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "side_effects",
		Name:      "dispatch_total",
		Help:      "Side-effect jobs handed to the queue, by job code and outcome.",
	}, []string{"code", "outcome"})
)

func init() {
	prometheus.MustRegister(httpRequests, httpLatency, orderTransitions, dispatches)
}

// ObserveRequest records one served HTTP request
func ObserveRequest(route, method, status string, latencyMS float64) {
	httpRequests.WithLabelValues(route, method, status).Inc()
	httpLatency.WithLabelValues(route, method).Observe(latencyMS)
}

// ObserveTransition records a committed order status change
func ObserveTransition(from, to string) {
	orderTransitions.WithLabelValues(from, to).Inc()
}

// ObserveDispatch records the outcome of a side-effect enqueue ("ok" or "failed")
func ObserveDispatch(code, outcome string) {
	dispatches.WithLabelValues(code, outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
