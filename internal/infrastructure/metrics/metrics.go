// Package metrics 定義 Prometheus 指標
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hankki_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hankki_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hankki_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// 推薦快取
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hankki_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hankki_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
		[]string{"backend"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hankki_cache_errors_total",
			Help: "Total number of cache backend errors treated as misses",
		},
		[]string{"backend", "operation"},
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hankki_cache_invalidations_total",
			Help: "Total number of event driven cache invalidations",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hankki_cache_evictions_total",
			Help: "Total number of in-memory cache evictions",
		},
	)

	// 排序
	RankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hankki_ranking_duration_seconds",
			Help:    "Duration of a full ranking pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	RankedCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hankki_ranked_candidates",
			Help:    "Number of scorable candidate recipes per ranking pass",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)

	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hankki_ranking_fallback_total",
			Help: "Total number of rankings served from a fallback path",
		},
		[]string{"kind"},
	)

	// 外部食譜來源
	FeedSeedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hankki_feed_seed_total",
			Help: "Total number of catalog seed attempts",
		},
		[]string{"result"},
	)

	FeedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hankki_feed_rows_total",
			Help: "Total number of feed rows processed",
		},
		[]string{"outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hankki_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hankki_circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker",
		},
		[]string{"name", "result"},
	)
)
