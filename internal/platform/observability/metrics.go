package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReverifyCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factcheck_reverify_cycles_total",
		Help: "The total number of re-verification cycles by outcome",
	}, []string{"status"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "factcheck_reverify_cycle_duration_seconds",
		Help:    "Duration of a full re-verification cycle",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	ClaimsReverified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factcheck_claims_reverified_total",
		Help: "The total number of claims processed by the re-verification cycle",
	}, []string{"outcome"})

	StaleClaimsFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factcheck_stale_claims_found",
		Help: "Number of stale claims selected in the latest cycle",
	})

	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factcheck_provider_requests_total",
		Help: "The total number of verification provider requests",
	}, []string{"status"})

	ProviderRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "factcheck_provider_request_duration_seconds",
		Help:    "Duration of verification provider requests",
		Buckets: prometheus.DefBuckets,
	})

	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factcheck_notifications_created_total",
		Help: "The total number of verdict-change notifications written",
	})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factcheck_notification_failures_total",
		Help: "The total number of notification writes that failed",
	})

	TranslationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factcheck_translation_requests_total",
		Help: "The total number of translation service requests",
	}, []string{"status"})
)

// Cycle outcome label values.
const (
	CycleStatusCompleted = "completed"
	CycleStatusFailed    = "failed"
	CycleStatusEmpty     = "empty"

	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeError     = "error"
)
