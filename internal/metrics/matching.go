// Package metrics defines Prometheus instrumentation for the match pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching Prometheus metrics.
var (
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "match_requests_total",
			Help:      "Total number of match requests",
		},
		[]string{"status", "degraded"},
	)

	MatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "matchd",
			Name:      "match_duration_seconds",
			Help:      "End-to-end match pipeline duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	MatchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "matchd",
			Name:      "match_candidates",
			Help:      "Candidates retrieved per match request",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "result_cache_total",
			Help:      "Match result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "coalesced"
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding provider requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchd",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "embedding_cache_total",
			Help:      "Embedding store hash-match hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	RerankRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "rerank_requests_total",
			Help:      "Total number of rerank stage outcomes",
		},
		[]string{"status"}, // "success" / "degraded" / "skipped"
	)

	RerankAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "rerank_attempts_total",
			Help:      "Individual rerank call attempts by outcome",
		},
		[]string{"outcome"}, // "success" / "transient" / "rate_limited" / "malformed"
	)

	RerankDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "matchd",
			Name:      "rerank_duration_seconds",
			Help:      "Total rerank stage duration across attempts in seconds",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.35, 0.5, 0.75, 1, 1.5},
		},
	)

	RankingScoreSource = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "ranking_score_source_total",
			Help:      "Candidates scored by source",
		},
		[]string{"source"}, // "model" / "heuristic"
	)

	ModelReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "model_reloads_total",
			Help:      "Ranking model reloads by outcome",
		},
		[]string{"status"},
	)
)

var matchingMetricsRegistered bool

// RegisterMatchingMetrics registers Prometheus matching metrics. Must be called once from main.
func RegisterMatchingMetrics() {
	if matchingMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(MatchCandidates)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(RerankRequestsTotal)
	prometheus.MustRegister(RerankAttemptsTotal)
	prometheus.MustRegister(RerankDuration)
	prometheus.MustRegister(RankingScoreSource)
	prometheus.MustRegister(ModelReloadsTotal)
	matchingMetricsRegistered = true
}
