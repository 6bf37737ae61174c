package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docsight_turn_duration_seconds",
			Help:    "End-to-end turn processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsight_turns_total",
			Help: "Total number of chat turns processed",
		},
		[]string{"status"},
	)

	CondenseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docsight_condense_duration_seconds",
			Help:    "Question condensation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
	)

	RetrievedChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docsight_retrieved_chunks",
			Help:    "Number of chunks retrieved per turn",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		},
	)

	IndexBuildDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docsight_index_build_seconds",
			Help: "Duration of the one-time index build in seconds",
		},
	)

	IndexChunksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docsight_index_chunks_total",
			Help: "Number of chunks held by the vector index",
		},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docsight_sessions_active",
			Help: "Number of live sessions",
		},
	)

	PersistenceFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docsight_persistence_failures_total",
			Help: "Total conversation log write failures",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsight_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsight_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(TurnDuration)
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(CondenseDuration)
	prometheus.MustRegister(RetrievedChunks)
	prometheus.MustRegister(IndexBuildDuration)
	prometheus.MustRegister(IndexChunksTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(PersistenceFailures)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
