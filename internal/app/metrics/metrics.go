package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "canteen",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "canteen",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout attempts by outcome.",
		},
		[]string{"outcome"},
	)

	checkoutAmount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "canteen",
			Subsystem: "checkout",
			Name:      "amount",
			Help:      "Amount charged per successful checkout, in currency units.",
			Buckets:   []float64{10, 25, 50, 100, 200, 500, 1000},
		},
	)

	ordersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created per shop.",
		},
		[]string{"shop_id"},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status changes made by shops.",
		},
		[]string{"status"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by role and result.",
		},
		[]string{"role", "success"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "canteen",
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions held by the in-memory session store.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		checkouts,
		checkoutAmount,
		ordersCreated,
		orderTransitions,
		logins,
		activeSessions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted tracks an in-flight request; call the returned func when it ends.
func RequestStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordHTTPRequest records one handled request. path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Checkout outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeEmptyCart    = "empty_cart"
	OutcomeInsufficient = "insufficient_balance"
	OutcomeError        = "error"
)

// RecordCheckout records the outcome of a checkout and, on success, the
// amount charged and the orders it produced.
func RecordCheckout(outcome string, amount money.Cents, shopIDs []int64) {
	checkouts.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSuccess {
		return
	}
	checkoutAmount.Observe(amount.Decimal().InexactFloat64())
	for _, id := range shopIDs {
		ordersCreated.WithLabelValues(strconv.FormatInt(id, 10)).Inc()
	}
}

// RecordOrderTransition counts a shop moving an order to status.
func RecordOrderTransition(status string) {
	orderTransitions.WithLabelValues(status).Inc()
}

// RecordLogin counts a login attempt.
func RecordLogin(role string, success bool) {
	logins.WithLabelValues(role, strconv.FormatBool(success)).Inc()
}

// SetActiveSessions reports the current in-memory session count.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
