package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitgrid",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	conflictChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitgrid",
			Name:      "conflict_checks_total",
			Help:      "Count of conflict checks by outcome.",
		},
		[]string{"result"},
	)

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fitgrid",
			Name:      "personal_booking_created_total",
			Help:      "Count of personal bookings written.",
		},
	)

	bookingBlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fitgrid",
			Name:      "personal_booking_blocked_total",
			Help:      "Count of personal booking writes blocked by conflicts.",
		},
	)

	slotQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fitgrid",
			Name:      "slot_queries_total",
			Help:      "Count of free-slot enumerations.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, conflictChecks, bookingCreated, bookingBlocked, slotQueries)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncConflictCheck(result string) {
	conflictChecks.WithLabelValues(result).Inc()
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncBookingBlocked() {
	bookingBlocked.Inc()
}

func IncSlotQuery() {
	slotQueries.Inc()
}
