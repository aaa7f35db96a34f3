package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for pricewatch.
type Metrics struct {
	// Tracker
	TicksTotal         prometheus.Counter
	TickDuration       prometheus.Histogram
	ObservationsTotal  *prometheus.CounterVec // labels: symbol
	FetchErrorsTotal   *prometheus.CounterVec // labels: symbol
	FetchDuration      prometheus.Histogram
	AlertsTotal        *prometheus.CounterVec // labels: symbol
	TrackedInstruments prometheus.Gauge
	TrackerRunning     prometheus.Gauge // 0=stopped, 1=running
	ImportsTotal       *prometheus.CounterVec // labels: result=ok|malformed

	// Indicator engine
	IndicatorComputeDur prometheus.Histogram
	IndicatorRebuilds   prometheus.Counter

	// Backpressure
	BusDropsTotal        *prometheus.CounterVec // labels: subscriber
	ChannelSaturationPct *prometheus.GaugeVec   // labels: channel_name

	// Sinks
	RedisWriteDur            prometheus.Histogram
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	SQLiteCommitDur          prometheus.Histogram
	NotificationsTotal       *prometheus.CounterVec // labels: result=ok|error

	// Gateway
	WSClients prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_ticks_total",
			Help: "Total tracker ticks run",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_tick_duration_seconds",
			Help:    "Wall time of one tick across all instruments",
			Buckets: prometheus.DefBuckets,
		}),
		ObservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_observations_total",
			Help: "Observations appended to history (by symbol)",
		}, []string{"symbol"}),
		FetchErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_fetch_errors_total",
			Help: "Price source failures and timeouts (by symbol)",
		}, []string{"symbol"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_fetch_duration_seconds",
			Help:    "Price source latency per instrument",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_alerts_total",
			Help: "Alerts fired (by symbol)",
		}, []string{"symbol"}),
		TrackedInstruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_tracked_instruments",
			Help: "Instruments on the watchlist",
		}),
		TrackerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_tracker_running",
			Help: "Tracker state (0=stopped, 1=running)",
		}),
		ImportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_imports_total",
			Help: "State imports (by result)",
		}, []string{"result"}),

		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_indicator_compute_duration_seconds",
			Help:    "Indicator snapshot compute latency per observation",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		IndicatorRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_indicator_rebuilds_total",
			Help: "Incremental indicator state rebuilt from the window",
		}),

		BusDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_bus_drops_total",
			Help: "Events dropped by the bus per subscriber",
		}, []string{"subscriber"}),
		ChannelSaturationPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pricewatch_channel_saturation_pct",
			Help: "Channel fill percentage (len/cap * 100)",
		}, []string{"channel_name"}),

		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_redis_write_duration_seconds",
			Help:    "Redis publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_notifications_total",
			Help: "Alert notifications sent (by result)",
		}, []string{"result"}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_ws_clients",
			Help: "Connected WebSocket clients",
		}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickDuration,
		m.ObservationsTotal,
		m.FetchErrorsTotal,
		m.FetchDuration,
		m.AlertsTotal,
		m.TrackedInstruments,
		m.TrackerRunning,
		m.ImportsTotal,
		m.IndicatorComputeDur,
		m.IndicatorRebuilds,
		m.BusDropsTotal,
		m.ChannelSaturationPct,
		m.RedisWriteDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.SQLiteCommitDur,
		m.NotificationsTotal,
		m.WSClients,
	)

	return m
}
