package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderdesk_api_requests_total",
			Help: "Requests sent to the order backend",
		},
		[]string{"operation", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderdesk_api_request_duration_seconds",
			Help:    "Duration of requests to the order backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	PushEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderdesk_push_events_total",
			Help: "Push events received, by event name",
		},
		[]string{"event"},
	)

	PushReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderdesk_push_reconnect_attempts_total",
			Help: "Failed push connection attempts",
		},
	)

	PushConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orderdesk_push_connected",
			Help: "1 while the push channel is live",
		},
	)

	NotificationsUnread = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orderdesk_notifications_unread",
			Help: "Unread alerts in the notification store",
		},
	)

	CacheRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderdesk_cache_refreshes_total",
			Help: "Background refreshes of stale queries, by outcome",
		},
		[]string{"outcome"},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(PushEventsTotal)
	prometheus.MustRegister(PushReconnectsTotal)
	prometheus.MustRegister(PushConnected)
	prometheus.MustRegister(NotificationsUnread)
	prometheus.MustRegister(CacheRefreshesTotal)
}
