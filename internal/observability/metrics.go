package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReactionsTotal counts like and dislike toggles.
	ReactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogapi_reactions_total",
		Help: "Total number of post reactions by kind",
	}, []string{"kind"})

	// FollowTogglesTotal counts follow toggles by outcome (followed, unfollowed).
	FollowTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogapi_follow_toggles_total",
		Help: "Total number of follow toggles by result",
	}, []string{"result"})

	// BookmarkTogglesTotal counts bookmark toggles by outcome (bookmarked, unbookmarked).
	BookmarkTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogapi_bookmark_toggles_total",
		Help: "Total number of bookmark toggles by result",
	}, []string{"result"})

	// CodesRotatedTotal counts expired codes that were rotated, by purpose.
	CodesRotatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogapi_codes_rotated_total",
		Help: "Total number of verification and reset codes rotated after expiry",
	}, []string{"purpose"})

	// EmailsTotal counts outbound emails by template and status.
	EmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogapi_emails_total",
		Help: "Total number of outbound emails by template and status",
	}, []string{"template", "status"})

	// SearchLatency records post search latency by SQL dialect.
	SearchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogapi_search_latency_seconds",
		Help:    "Post search latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"dialect"})

	// WebSocketConnections is the gauge of open notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blogapi_websocket_connections",
		Help: "Number of open notification WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages a client could not accept (reason: full, closed).
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogapi_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackSearch returns a function that records search latency when called (e.g. defer).
func TrackSearch(dialect string) func() {
	start := time.Now()
	return func() {
		SearchLatency.WithLabelValues(dialect).Observe(time.Since(start).Seconds())
	}
}
