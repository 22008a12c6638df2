// Package metrics provides Prometheus instrumentation for the ledger.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransactionsTotal counts successful ledger transactions by type.
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fantapay_transactions_total",
		Help: "Total number of ledger transactions recorded",
	}, []string{"type"})

	// TransactionVolumeCents accumulates moved value in cents by type.
	TransactionVolumeCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fantapay_transaction_volume_cents_total",
		Help: "Cumulative transaction volume in euro cents",
	}, []string{"type"})

	// InsufficientBalanceTotal counts mutations rejected for lack of funds.
	InsufficientBalanceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fantapay_insufficient_balance_total",
		Help: "Mutations rejected because the wallet balance was too low",
	})

	// MatchdaysPaidTotal counts matchday obligations flipped to paid.
	MatchdaysPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fantapay_matchdays_paid_total",
		Help: "Matchday payment records transitioned to paid",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fantapay_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fantapay_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "route"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
// The chi route pattern is used as the label to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
