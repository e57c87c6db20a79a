// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cal",
			Name:      "booking_created_total",
			Help:      "Count of bookings created, labelled by kind (new|reschedule).",
		},
		[]string{"kind"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cal",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled.",
		},
	)

	slotRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cal",
			Name:      "slot_requests_total",
			Help:      "Count of open-slot computations served.",
		},
	)

	availabilityFetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cal",
			Name:      "availability_fetch_errors_total",
			Help:      "Count of failed busy-interval fetches.",
		},
	)
)

// Register registers the counters (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, slotRequests, availabilityFetchErrors)
	})
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncBookingCreated(kind string) {
	bookingCreated.WithLabelValues(kind).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncSlotRequests() {
	slotRequests.Inc()
}

func IncAvailabilityFetchErrors() {
	availabilityFetchErrors.Inc()
}
