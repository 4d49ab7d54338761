package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records outcomes of checkout attempts and stock races.
type CheckoutMetrics struct {
	duration   *prometheus.HistogramVec
	outcomes   *prometheus.CounterVec
	stockRaces prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})
	stockRaces := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_conflicts_total",
		Help: "Reservations lost to a concurrent buyer.",
	})
	reg.MustRegister(duration, outcomes, stockRaces)
	return &CheckoutMetrics{
		duration:   duration,
		outcomes:   outcomes,
		stockRaces: stockRaces,
	}
}

// ObserveDuration records the duration of an attempt with the given result.
func (c *CheckoutMetrics) ObserveDuration(result string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncOutcome increments the attempt counter for the given result.
func (c *CheckoutMetrics) IncOutcome(result string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncStockConflict counts a reservation lost to a racing buyer.
func (c *CheckoutMetrics) IncStockConflict() {
	if c == nil || c.stockRaces == nil {
		return
	}
	c.stockRaces.Inc()
}

func normalizeLabel(result string) string {
	if result == "" {
		return "unknown"
	}
	return result
}
