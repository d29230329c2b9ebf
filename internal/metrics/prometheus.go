// Package metrics provides Prometheus collectors for the retrieval core.
// It tracks embedding cache effectiveness, embedding provider health, chat
// latency per provider and which search path answered conversation queries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "recall"
)

// LatencyBuckets defines histogram buckets for provider latency (in seconds).
var LatencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1.0, 1.5, 2.0, 3.0, 5.0,
	7.5, 10.0, 15.0, 20.0, 30.0, 60.0, 120.0,
}

// Label values shared by callers.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"

	StatusSuccess = "success"
	StatusQuota   = "quota_exceeded"
	StatusError   = "error"

	MethodNone     = "none"
	MethodSemantic = "semantic"
	MethodKeyword  = "keyword"
)

// =============================================================================
// Embedding Metrics
// =============================================================================

var (
	// EmbeddingCacheRequests counts embedding cache lookups by result.
	EmbeddingCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_requests_total",
			Help:      "Total embedding cache lookups",
		},
		[]string{"result"},
	)

	// EmbeddingProviderCalls counts outbound embedding calls by outcome.
	EmbeddingProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_provider_calls_total",
			Help:      "Total embedding provider calls",
		},
		[]string{"status"},
	)
)

// =============================================================================
// Chat Metrics
// =============================================================================

var (
	// ChatRequests counts chat calls per provider and outcome.
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Total chat requests",
		},
		[]string{"provider", "status"},
	)

	// ChatLatency tracks wall-clock chat latency per provider.
	ChatLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_latency_seconds",
			Help:      "Chat call latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"provider"},
	)

	// ChatTokens counts tokens reported or estimated for successful chats.
	ChatTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_tokens_total",
			Help:      "Total tokens used by chat calls",
		},
		[]string{"provider", "model"},
	)
)

// =============================================================================
// Query Metrics
// =============================================================================

var (
	// QuerySearches counts conversation queries by the search path that served them.
	QuerySearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_search_total",
			Help:      "Total conversation queries by search method",
		},
		[]string{"method"},
	)
)

// =============================================================================
// Storage Metrics
// =============================================================================

var (
	// CacheStoreConnections reports the SQL cache store connection pool by state.
	CacheStoreConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_store_connections",
			Help:      "SQL embedding cache store connections by state",
		},
		[]string{"dialect", "state"},
	)
)
