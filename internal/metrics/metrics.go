package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests 按路由与状态码统计请求数
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moovie_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration 请求耗时
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moovie_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// CatalogRequests TMDB 调用结果：ok / not_found / unavailable / rejected
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moovie_catalog_requests_total",
		Help: "Catalog (TMDB) requests by operation and outcome.",
	}, []string{"op", "outcome"})

	// CatalogCacheHits 目录缓存命中
	CatalogCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moovie_catalog_cache_hits_total",
		Help: "Catalog cache hits by cache kind.",
	}, []string{"cache"})

	// CatalogBreakerState 熔断器状态，0=closed 1=half-open 2=open
	CatalogBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moovie_catalog_breaker_state",
		Help: "Catalog circuit breaker state (0 closed, 1 half-open, 2 open).",
	})

	// CatalogEnrichFailures 占位记录补全失败次数
	CatalogEnrichFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moovie_catalog_enrich_failures_total",
		Help: "Placeholder enrichment failures by media kind.",
	}, []string{"kind"})

	// CleanupRemoved 清理任务删除的行数
	CleanupRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moovie_cleanup_removed_total",
		Help: "Rows removed by the orphan cleanup job.",
	}, []string{"table"})
)
