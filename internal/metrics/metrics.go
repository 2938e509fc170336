// Package metrics holds the prometheus collectors shared by the API and the worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmint",
			Name:      "jobs_created_total",
			Help:      "Jobs accepted by the API, by tool",
		},
		[]string{"tool"},
	)

	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmint",
			Name:      "jobs_processed_total",
			Help:      "Jobs finished by the worker, by tool and result (done, failed)",
		},
		[]string{"tool", "result"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docmint",
			Name:      "job_duration_seconds",
			Help:      "Time spent running a tool, by tool",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	compressAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docmint",
			Name:      "compress_attempts",
			Help:      "Encodes spent by the size-targeting compressor per image",
			Buckets:   prometheus.LinearBuckets(1, 1, 16),
		},
	)

	budgetMissed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docmint",
			Name:      "compress_budget_missed_total",
			Help:      "Images whose best effort still exceeded the target size",
		},
	)

	pagesRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmint",
			Name:      "pages_rendered_total",
			Help:      "PDF pages rendered to JPEG, by result (ok, failed)",
		},
		[]string{"result"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(jobsCreated, jobsProcessed, jobDuration, compressAttempts, budgetMissed, pagesRendered)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncCreated(tool string) { jobsCreated.WithLabelValues(tool).Inc() }

func ObserveJob(tool, result string, dur time.Duration) {
	jobsProcessed.WithLabelValues(tool, result).Inc()
	jobDuration.WithLabelValues(tool).Observe(dur.Seconds())
}

func ObserveCompression(attempts int, reached bool) {
	compressAttempts.Observe(float64(attempts))
	if !reached {
		budgetMissed.Inc()
	}
}

func IncPageRendered(result string) { pagesRendered.WithLabelValues(result).Inc() }
