// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	LaunchEventsReceived prometheus.Counter
	TradeEventsReceived  *prometheus.CounterVec
	StreamParseErrors    prometheus.Counter
	StreamReconnects     prometheus.Counter
	EventsDropped        *prometheus.CounterVec

	// Aggregation metrics
	TrackedTokens prometheus.Gauge
	TokensSwept   prometheus.Counter

	// Screening metrics
	ScreensEvaluated *prometheus.CounterVec
	AlertsFired      *prometheus.CounterVec
	ScreenErrors     *prometheus.CounterVec

	// Trading metrics
	PositionsOpened prometheus.Counter
	PositionsClosed *prometheus.CounterVec
	OpenPositions   prometheus.Gauge
	TotalPnLSOL     prometheus.Gauge

	// Provider metrics
	ProviderCallLatency *prometheus.HistogramVec
	ProviderCallErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastEventReceived prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pumpwatch"
	}

	return &Metrics{
		// Stream metrics
		LaunchEventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "launch_events_received_total",
			Help:      "Total number of token launch events received",
		}),
		TradeEventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "trade_events_received_total",
			Help:      "Total number of trade events received by side",
		}, []string{"side"}),
		StreamParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "parse_errors_total",
			Help:      "Total number of stream frames that failed to decode",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped due to full worker queues",
		}, []string{"event_type"}),

		// Aggregation metrics
		TrackedTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "tracked_tokens",
			Help:      "Current number of tokens with in-memory trade history",
		}),
		TokensSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "tokens_swept_total",
			Help:      "Total number of idle tokens evicted from the aggregator",
		}),

		// Screening metrics
		ScreensEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "evaluations_total",
			Help:      "Total number of screen evaluations by kind and outcome",
		}, []string{"kind", "outcome"}),
		AlertsFired: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "alerts_fired_total",
			Help:      "Total number of alerts fired by kind",
		}, []string{"kind"}),
		ScreenErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "errors_total",
			Help:      "Total number of screen evaluation errors by kind",
		}, []string{"kind"}),

		// Trading metrics
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "positions_opened_total",
			Help:      "Total number of paper positions opened",
		}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "positions_closed_total",
			Help:      "Total number of paper positions closed by exit reason",
		}, []string{"reason"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "open_positions",
			Help:      "Current number of open paper positions",
		}),
		TotalPnLSOL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "total_pnl_sol",
			Help:      "Cumulative realized PnL in SOL across closed positions",
		}),

		// Provider metrics
		ProviderCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_latency_seconds",
			Help:      "External provider call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "method"}),
		ProviderCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_errors_total",
			Help:      "Total number of failed external provider calls",
		}, []string{"provider", "method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastEventReceived: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_received_timestamp",
			Help:      "Unix timestamp of the last stream event received",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordLaunchEvent increments the launch events counter.
func RecordLaunchEvent() {
	DefaultMetrics.LaunchEventsReceived.Inc()
	DefaultMetrics.LastEventReceived.SetToCurrentTime()
}

// RecordTradeEvent increments the trade events counter for a side.
func RecordTradeEvent(side string) {
	DefaultMetrics.TradeEventsReceived.WithLabelValues(side).Inc()
	DefaultMetrics.LastEventReceived.SetToCurrentTime()
}

// RecordParseError increments the stream parse error counter.
func RecordParseError() {
	DefaultMetrics.StreamParseErrors.Inc()
}

// RecordReconnect increments the reconnect counter.
func RecordReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// RecordDrop records an event dropped because a worker queue was full.
func RecordDrop(eventType string) {
	DefaultMetrics.EventsDropped.WithLabelValues(eventType).Inc()
}

// RecordScreen records a screen evaluation outcome.
func RecordScreen(kind string, passed bool) {
	outcome := "fail"
	if passed {
		outcome = "pass"
	}
	DefaultMetrics.ScreensEvaluated.WithLabelValues(kind, outcome).Inc()
}

// RecordAlert records a fired alert.
func RecordAlert(kind string) {
	DefaultMetrics.AlertsFired.WithLabelValues(kind).Inc()
}

// RecordScreenError records a screen evaluation error.
func RecordScreenError(kind string) {
	DefaultMetrics.ScreenErrors.WithLabelValues(kind).Inc()
}

// RecordPositionOpened increments the opened positions counter.
func RecordPositionOpened() {
	DefaultMetrics.PositionsOpened.Inc()
}

// RecordPositionClosed records a closed position with its exit reason.
func RecordPositionClosed(reason string) {
	DefaultMetrics.PositionsClosed.WithLabelValues(reason).Inc()
}

// UpdateTradingState updates the open position and PnL gauges.
func UpdateTradingState(openPositions int, totalPnLSOL float64) {
	DefaultMetrics.OpenPositions.Set(float64(openPositions))
	DefaultMetrics.TotalPnLSOL.Set(totalPnLSOL)
}

// UpdateTrackedTokens updates the tracked token gauge.
func UpdateTrackedTokens(n int) {
	DefaultMetrics.TrackedTokens.Set(float64(n))
}

// RecordSweep records evicted idle tokens.
func RecordSweep(n int) {
	DefaultMetrics.TokensSwept.Add(float64(n))
}

// RecordProviderCall records an external provider call.
func RecordProviderCall(provider, method string, seconds float64, err error) {
	DefaultMetrics.ProviderCallLatency.WithLabelValues(provider, method).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderCallErrors.WithLabelValues(provider, method).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
