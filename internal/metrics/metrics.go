package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "file_processor",
		Name:      "jobs_total",
		Help:      "Processing jobs by tool and outcome.",
	}, []string{"tool", "status"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "file_processor",
		Name:      "job_duration_seconds",
		Help:      "Wall-clock duration of processing jobs.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"tool"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "file_processor",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)

// ObserveJob records one finished (or rejected) job.
func ObserveJob(tool, status string, elapsed time.Duration) {
	jobsTotal.WithLabelValues(tool, status).Inc()
	jobDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveRateLimited counts a request turned away by the limiter.
func ObserveRateLimited() {
	rateLimited.Inc()
}
