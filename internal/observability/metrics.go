package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_scans_total",
			Help: "Scan validations by outcome",
		},
		[]string{"outcome"},
	)

	ValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkin_validation_seconds",
			Help:    "Duration of scan validations including the conditional update",
			Buckets: prometheus.DefBuckets,
		},
	)

	DBTxRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkin_db_tx_retries_total",
			Help: "Transactions retried after a serialization failure",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "checkin_outbox_lag_seconds",
			Help: "Age of the oldest record published in the last outbox batch",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkin_rabbit_publish_failures_total",
			Help: "Outbox records that failed to publish and stay queued",
		},
	)

	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
		[]string{"scope"},
	)

	TallyCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_tally_cache_total",
			Help: "Tally lookups by cache result",
		},
		[]string{"result"},
	)
)
