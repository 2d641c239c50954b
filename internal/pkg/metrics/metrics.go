package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelationToggles counts toggle outcomes by relation kind and result (created/deleted).
	RelationToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relation_toggles_total",
			Help: "Relation toggles by kind and result",
		},
		[]string{"kind", "result"},
	)

	// TokenRotations counts refresh attempts by outcome (rotated, stale, reuse, invalid).
	TokenRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_token_rotations_total",
			Help: "Refresh token rotation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// OTPChallenges counts one-time codes issued and checked per flow.
	OTPChallenges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_challenges_total",
			Help: "OTP challenges by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	ListingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_duration_seconds",
			Help:    "Paginated listing latency by resource",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"resource"},
	)

	// MailBreakerState tracks the outbound mail circuit (0=closed, 1=half-open, 2=open).
	MailBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mail_circuit_breaker_state",
			Help: "Outbound mail circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// HTTPRequests observes request latency by route pattern, method and status.
	HTTPRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)
