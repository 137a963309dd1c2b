package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "townsquare_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheLookups counts cache-aside lookups by key family and result (hit, miss, bypass).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "townsquare_cache_lookups_total",
		Help: "Cache-aside lookups by key family and result",
	}, []string{"family", "result"})

	// PostMutations counts successful post mutations by operation.
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "townsquare_post_mutations_total",
		Help: "Successful post mutations by operation",
	}, []string{"operation"})

	// OwnershipRejections counts mutations refused because the requester is not the owner.
	OwnershipRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "townsquare_ownership_rejections_total",
		Help: "Mutations rejected by the ownership check",
	}, []string{"resource"})

	// ImageUploadBytes records the stored size of uploaded images.
	ImageUploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "townsquare_image_upload_bytes",
		Help:    "Size of stored post images in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
	})

	// FeedEventsPublished counts feed events handed to Redis pub/sub.
	FeedEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "townsquare_feed_events_published_total",
		Help: "Feed events published by type and outcome",
	}, []string{"event_type", "outcome"})

	// WebSocketConnections is the gauge of open feed stream connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "townsquare_websocket_connections",
		Help: "Number of open feed WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "townsquare_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)
