package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds the Prometheus metrics for the reflow server.
type serverMetrics struct {
	activeSessions prometheus.Gauge
	sessionsTotal  prometheus.Counter
	sessionsClosed prometheus.Counter
	eventsTotal    *prometheus.CounterVec
	eventErrors    *prometheus.CounterVec
	eventsDropped  prometheus.Counter
	framesSent     prometheus.Counter
	renderDuration prometheus.Histogram
	snapshotOps    *prometheus.CounterVec
}

var (
	globalMetrics     *serverMetrics
	globalMetricsOnce sync.Once
)

// metricsFor returns the singleton metrics, registering them with the
// default registry on first use.
func metricsFor() *serverMetrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = initMetrics(prometheus.DefaultRegisterer)
	})
	return globalMetrics
}

func initMetrics(registry prometheus.Registerer) *serverMetrics {
	factory := promauto.With(registry)
	const namespace = "reflow"

	return &serverMetrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active WebSocket sessions",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of sessions created",
		}),
		sessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of sessions closed",
		}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of client events processed",
		}, []string{"event"}),
		eventErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_errors_total",
			Help:      "Total number of event handler errors",
		}, []string{"event"}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped due to a full queue",
		}),
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Total number of render frames sent to clients",
		}),
		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Pass plus render duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		snapshotOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_ops_total",
			Help:      "Snapshot store operations by kind and outcome",
		}, []string{"op", "status"}),
	}
}
