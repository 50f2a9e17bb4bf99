package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the realtime service
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	websocketConnections prometheus.Gauge
	websocketEventsTotal *prometheus.CounterVec
	websocketErrorsTotal *prometheus.CounterVec

	// Broadcast metrics
	broadcastsTotal *prometheus.CounterVec
	broadcastFanout prometheus.Histogram

	// Call metrics
	callsInitiatedTotal *prometheus.CounterVec
	callsFailedTotal    *prometheus.CounterVec
	groupCallJoinsTotal prometheus.Counter

	// Worker metrics
	workerTicksTotal       *prometheus.CounterVec
	workerTickDuration     *prometheus.HistogramVec
	workerTickFailures     *prometheus.CounterVec
	messagesReleased       prometheus.Counter
	messagesSelfDestructed prometheus.Counter

	// Push metrics
	pushNotificationsTotal  *prometheus.CounterVec
	pushNotificationsFailed *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		websocketConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of live WebSocket connections",
				ConstLabels: labels,
			},
		),
		websocketEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_events_total",
				Help:        "Total number of inbound WebSocket events by type",
				ConstLabels: labels,
			},
			[]string{"type"},
		),
		websocketErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_errors_total",
				Help:        "Total number of WebSocket event handler errors by code",
				ConstLabels: labels,
			},
			[]string{"code"},
		),
		broadcastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "broadcasts_total",
				Help:        "Total number of events fanned out to conversation groups",
				ConstLabels: labels,
			},
			[]string{"type"},
		),
		broadcastFanout: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "broadcast_fanout_size",
				Help:        "Number of connections reached per broadcast",
				ConstLabels: labels,
				Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250},
			},
		),
		callsInitiatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_initiated_total",
				Help:        "Total number of calls initiated by type",
				ConstLabels: labels,
			},
			[]string{"call_type", "group"},
		),
		callsFailedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_failed_total",
				Help:        "Total number of call initiations that failed by reason",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),
		groupCallJoinsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "group_call_joins_total",
				Help:        "Total number of group call joins",
				ConstLabels: labels,
			},
		),
		workerTicksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "worker_ticks_total",
				Help:        "Total number of background worker ticks",
				ConstLabels: labels,
			},
			[]string{"worker"},
		),
		workerTickDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "worker_tick_duration_seconds",
				Help:        "Background worker tick duration in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"worker"},
		),
		workerTickFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "worker_tick_failures_total",
				Help:        "Total number of failed background worker ticks",
				ConstLabels: labels,
			},
			[]string{"worker"},
		),
		messagesReleased: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "scheduled_messages_released_total",
				Help:        "Total number of scheduled messages promoted to the live stream",
				ConstLabels: labels,
			},
		),
		messagesSelfDestructed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "messages_self_destructed_total",
				Help:        "Total number of messages expired by the self-destruct sweeper",
				ConstLabels: labels,
			},
		),
		pushNotificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "push_notifications_total",
				Help:        "Total number of push notifications handed to a provider",
				ConstLabels: labels,
			},
			[]string{"provider"},
		),
		pushNotificationsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "push_notifications_failed_total",
				Help:        "Total number of push notifications that failed to send",
				ConstLabels: labels,
			},
			[]string{"provider"},
		),
	}
}

// RecordHTTPRequest records an HTTP request with its duration
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// ConnectionOpened increments the live connection gauge
func (m *Metrics) ConnectionOpened() {
	m.websocketConnections.Inc()
}

// ConnectionClosed decrements the live connection gauge
func (m *Metrics) ConnectionClosed() {
	m.websocketConnections.Dec()
}

// RecordInboundEvent counts an inbound WebSocket event
func (m *Metrics) RecordInboundEvent(eventType string) {
	m.websocketEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordHandlerError counts a handler error by error code
func (m *Metrics) RecordHandlerError(code string) {
	m.websocketErrorsTotal.WithLabelValues(code).Inc()
}

// RecordBroadcast records a conversation fan-out
func (m *Metrics) RecordBroadcast(eventType string, fanout int) {
	m.broadcastsTotal.WithLabelValues(eventType).Inc()
	m.broadcastFanout.Observe(float64(fanout))
}

// RecordCallInitiated counts an initiated call
func (m *Metrics) RecordCallInitiated(callType string, group bool) {
	m.callsInitiatedTotal.WithLabelValues(callType, strconv.FormatBool(group)).Inc()
}

// RecordCallFailed counts a failed call initiation
func (m *Metrics) RecordCallFailed(reason string) {
	m.callsFailedTotal.WithLabelValues(reason).Inc()
}

// RecordGroupCallJoin counts a group call join
func (m *Metrics) RecordGroupCallJoin() {
	m.groupCallJoinsTotal.Inc()
}

// RecordWorkerTick records one worker tick with its duration and outcome
func (m *Metrics) RecordWorkerTick(worker string, duration time.Duration, err error) {
	m.workerTicksTotal.WithLabelValues(worker).Inc()
	m.workerTickDuration.WithLabelValues(worker).Observe(duration.Seconds())
	if err != nil {
		m.workerTickFailures.WithLabelValues(worker).Inc()
	}
}

// RecordMessagesReleased counts scheduled messages promoted by the release worker
func (m *Metrics) RecordMessagesReleased(n int) {
	m.messagesReleased.Add(float64(n))
}

// RecordMessagesSelfDestructed counts messages expired by the sweeper
func (m *Metrics) RecordMessagesSelfDestructed(n int) {
	m.messagesSelfDestructed.Add(float64(n))
}

// RecordPush counts a push notification attempt
func (m *Metrics) RecordPush(provider string, err error) {
	m.pushNotificationsTotal.WithLabelValues(provider).Inc()
	if err != nil {
		m.pushNotificationsFailed.WithLabelValues(provider).Inc()
	}
}
