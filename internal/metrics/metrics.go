// Package metrics declares the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evently_bookings_created_total",
		Help: "Bookings successfully created.",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evently_bookings_cancelled_total",
		Help: "Bookings cancelled.",
	})

	CapacityRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evently_capacity_rejections_total",
		Help: "Booking attempts rejected because remaining capacity was insufficient.",
	})

	CheckinsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evently_checkins_accepted_total",
		Help: "References consumed by a successful check-in.",
	})

	CheckinsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evently_checkins_duplicate_total",
		Help: "Check-in attempts on an already consumed reference.",
	})

	RemainingCapacity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evently_event_remaining_capacity",
		Help: "Remaining capacity per event, fed by the capacity-changed subscriber.",
	}, []string{"event_id"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evently_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
