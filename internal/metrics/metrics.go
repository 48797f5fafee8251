package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moviefinder",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"method", "path"})

	MovieQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "movie_queries_total",
		Help:      "Total /api/movies requests by kind (title, browse) and status code.",
	}, []string{"kind", "status"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "upstream_requests_total",
		Help:      "Total requests to the upstream movie catalog by result status.",
	}, []string{"status"})

	UpstreamRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "moviefinder",
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream movie catalog request duration in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	ResultCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "result_cache_hits_total",
		Help:      "Total number of search result cache hits.",
	})

	ResultCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "result_cache_misses_total",
		Help:      "Total number of search result cache misses.",
	})

	DetailCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "detail_cache_hits_total",
		Help:      "Total number of movie detail lookups served from the index.",
	})

	DetailCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "detail_cache_misses_total",
		Help:      "Total number of movie detail lookups not found in the index.",
	})

	FavoritesStorageFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviefinder",
		Name:      "favorites_storage_failures_total",
		Help:      "Favorites storage failures by operation (load, save).",
	}, []string{"op"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MovieQueriesTotal,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		ResultCacheHitsTotal,
		ResultCacheMissesTotal,
		DetailCacheHitsTotal,
		DetailCacheMissesTotal,
		FavoritesStorageFailuresTotal,
	)
}
