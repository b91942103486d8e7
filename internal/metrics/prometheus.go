package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BackendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qaforge_backend_call_duration_seconds",
			Help:    "Classifier backend call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"backend"},
	)

	BackendVotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaforge_backend_votes_total",
			Help: "Votes cast per backend and decision",
		},
		[]string{"backend", "decision"},
	)

	BackendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaforge_backend_errors_total",
			Help: "Backend calls that failed or returned unparseable output",
		},
		[]string{"backend"},
	)

	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaforge_classifications_total",
			Help: "Aggregate ensemble decisions",
		},
		[]string{"decision"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaforge_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaforge_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	RecordsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaforge_records_processed_total",
			Help: "Records drained by the batch processor",
		},
		[]string{"decision"},
	)

	TokensAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qaforge_tokens_awarded_total",
			Help: "Total token rewards granted",
		},
	)

	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qaforge_batch_duration_seconds",
			Help:    "Batch processing run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaforge_submissions_total",
			Help: "Submission requests by outcome",
		},
		[]string{"status"},
	)
)

func Init() {
	prometheus.MustRegister(BackendCallDuration)
	prometheus.MustRegister(BackendVotes)
	prometheus.MustRegister(BackendErrors)
	prometheus.MustRegister(ClassificationsTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(RecordsProcessed)
	prometheus.MustRegister(TokensAwarded)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(SubmissionsTotal)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
