package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups the application's Prometheus collectors. A nil
// *Collectors is valid and records nothing.
type Collectors struct {
	Registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	settlements   *prometheus.CounterVec
	sweptRecords  *prometheus.CounterVec
	sweepFailures *prometheus.CounterVec
	ordersCreated prometheus.Counter
	tokensIssued  prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pizzeria",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pizzeria",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "route"},
		),
		settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pizzeria",
				Subsystem: "purchase",
				Name:      "settlements_total",
				Help:      "Settlement attempts by outcome.",
			},
			[]string{"outcome"},
		),
		sweptRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pizzeria",
				Subsystem: "sweeper",
				Name:      "deleted_total",
				Help:      "Records deleted by the expiry sweeper.",
			},
			[]string{"folder"},
		),
		sweepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pizzeria",
				Subsystem: "sweeper",
				Name:      "failures_total",
				Help:      "Records the sweeper could not read or delete.",
			},
			[]string{"folder"},
		),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pizzeria",
			Subsystem: "cart",
			Name:      "orders_created_total",
			Help:      "Orders added to carts.",
		}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pizzeria",
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Tokens issued on login.",
		}),
	}
	c.Registry.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.settlements,
		c.sweptRecords,
		c.sweepFailures,
		c.ordersCreated,
		c.tokensIssued,
	)
	return c
}

// ObserveHTTP records a handled request.
func (c *Collectors) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveSettlement counts a settlement attempt.
func (c *Collectors) ObserveSettlement(outcome string) {
	if c == nil {
		return
	}
	c.settlements.WithLabelValues(outcome).Inc()
}

// ObserveSweep records one sweep over folder.
func (c *Collectors) ObserveSweep(folder string, deleted, failed int) {
	if c == nil {
		return
	}
	c.sweptRecords.WithLabelValues(folder).Add(float64(deleted))
	c.sweepFailures.WithLabelValues(folder).Add(float64(failed))
}

// OrderCreated counts a new cart line.
func (c *Collectors) OrderCreated() {
	if c == nil {
		return
	}
	c.ordersCreated.Inc()
}

// TokenIssued counts a successful login.
func (c *Collectors) TokenIssued() {
	if c == nil {
		return
	}
	c.tokensIssued.Inc()
}
