package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evp_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evp_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evp_outbox_backlog",
			Help: "Unpublished outbox records at last poll",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evp_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evp_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)

	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evp_bookings_created_total",
			Help: "Total bookings created",
		},
	)

	PaymentVerifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evp_payment_verify_failures_total",
			Help: "Total payment signature verification failures",
		},
	)

	RatingRecomputes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evp_rating_recomputes_total",
			Help: "Total vendor rating recomputations",
		},
	)
)
