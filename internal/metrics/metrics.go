package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gateway",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ExtractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "extractions_total",
		Help:      "Total extraction attempts by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	ExtractionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gateway",
		Name:      "extraction_duration_seconds",
		Help:      "Duration of extraction subprocess runs in seconds.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"strategy"})

	ActiveExtractions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gateway",
		Name:      "active_extractions",
		Help:      "Number of extraction subprocesses currently running.",
	})

	ArtifactCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "artifact_cache_hits_total",
		Help:      "Total retrievals short-circuited by an existing artifact.",
	})

	ArtifactEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "artifact_evictions_total",
		Help:      "Total artifacts removed by cache eviction.",
	})

	ArtifactEvictionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "artifact_eviction_errors_total",
		Help:      "Total artifact cache eviction failures.",
	})

	RateLimitRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected by a rate limiter, by limiter name.",
	}, []string{"limiter"})

	SubtitleConversions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "subtitle_conversions_total",
		Help:      "Total subtitle conversions by target format.",
	}, []string{"format"})

	MetadataCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "metadata_cache_hits_total",
		Help:      "Metadata cache lookups by result (hit, stale, miss).",
	}, []string{"result"})

	WSClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gateway",
		Name:      "ws_clients",
		Help:      "Number of connected progress feed clients.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ExtractionsTotal,
		ExtractionDuration,
		ActiveExtractions,
		ArtifactCacheHits,
		ArtifactEvictions,
		ArtifactEvictionErrors,
		RateLimitRejections,
		SubtitleConversions,
		MetadataCacheHits,
		WSClients,
	)
}
