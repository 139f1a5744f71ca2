// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PhotoUploads counts upload attempts by outcome (stored, quota_exceeded, invalid, failed).
	PhotoUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutterhub_photo_uploads_total",
		Help: "Photo upload attempts by outcome",
	}, []string{"outcome"})

	// QuotaRejections counts uploads refused by the daily quota, by tier.
	QuotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutterhub_upload_quota_rejections_total",
		Help: "Uploads rejected by the daily upload quota",
	}, []string{"tier"})

	// ModerationActions counts report actions applied by moderators.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutterhub_moderation_actions_total",
		Help: "Report actions applied by moderators",
	}, []string{"action"})

	// AutoSuspensions counts suspensions triggered by the warning threshold.
	AutoSuspensions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shutterhub_auto_suspensions_total",
		Help: "Users suspended automatically after reaching the warning threshold",
	})

	// RecommendationFallbacks counts recommendation requests served by the global top-rated list.
	RecommendationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shutterhub_recommendation_fallbacks_total",
		Help: "Recommendation requests with no similar photos",
	})

	// RealtimeReplayedNotifications counts notifications replayed to reconnecting clients.
	RealtimeReplayedNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shutterhub_realtime_replayed_notifications_total",
		Help: "Notifications replayed to websocket clients after reconnect",
	})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shutterhub_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutterhub_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutterhub_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
