package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus instrumentation for the API client. Callers that want these
// exposed serve promhttp themselves; a batch run simply accumulates them.
var (
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakingrewards_requests_total",
			Help: "Total number of StakingRewards API requests by outcome",
		},
		[]string{"status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stakingrewards_request_duration_seconds",
			Help:    "StakingRewards API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stakingrewards_cache_hits_total",
			Help: "Number of queries served from the response cache",
		},
	)
)

func init() {
	prometheus.MustRegister(requestCounter, requestDuration, cacheHits)
}
