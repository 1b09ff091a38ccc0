package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DetectionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "detections_processed_total",
		Help:      "Total number of detections run through the decision pipeline",
	}, []string{"camera_id"})

	DetectionsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "detections_dropped_total",
		Help:      "Total number of detections dropped before processing",
	}, []string{"reason"})

	IdentitiesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "identities_matched_total",
		Help:      "Total number of detections resolved to a known identity",
	}, []string{"camera_id"})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "events_emitted_total",
		Help:      "Total number of events that passed the dedup window",
	}, []string{"type", "severity"})

	EventsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "events_suppressed_total",
		Help:      "Total number of events suppressed as duplicates",
	}, []string{"type"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "notifications_sent_total",
		Help:      "Total number of notifications handed to the dispatch stream",
	}, []string{"type"})

	NotificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitewatch",
		Name:      "notifications_suppressed_total",
		Help:      "Total number of notifications blocked by the recency or dedup guard",
	}, []string{"type"})

	DedupEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitewatch",
		Name:      "dedup_entries",
		Help:      "Current number of suppression entries held by the dedup engine",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sitewatch",
		Name:      "dedup_sweep_duration_seconds",
		Help:      "Duration of dedup retention sweeps",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	RegistryIdentities = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitewatch",
		Name:      "registry_identities",
		Help:      "Number of identities in the current registry snapshot",
	})

	AttendanceDayRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitewatch",
		Name:      "attendance_day_records",
		Help:      "Number of attendance day records held in memory",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitewatch",
		Name:      "queue_depth",
		Help:      "Number of pending detections in the queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sitewatch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitewatch",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
