package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

// Metrics contains all SDK-level metrics (not application-specific).
type Metrics struct {
	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Stream metrics
	StreamMessages  *prometheus.CounterVec
	StreamDropped   *prometheus.CounterVec
	CallbackPanics  *prometheus.CounterVec

	// Low-level publish loop metrics
	CommandsPublished *prometheus.CounterVec

	// Link metrics
	LinkConnected  prometheus.Gauge
	LinkReconnects prometheus.Counter
	LinkRTT        prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all SDK metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "magicbot",
				Subsystem: "command",
				Name:      "total",
				Help:      "Total number of commands issued, by controller, operation and status code",
			},
			[]string{"controller", "operation", "code"},
		),

		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "magicbot",
				Subsystem: "command",
				Name:      "duration_seconds",
				Help:      "Command round-trip duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms .. ~16s
			},
			[]string{"controller", "operation"},
		),

		StreamMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "magicbot",
				Subsystem: "stream",
				Name:      "messages_total",
				Help:      "Total number of telemetry messages delivered, by stream",
			},
			[]string{"stream"},
		),

		StreamDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "magicbot",
				Subsystem: "stream",
				Name:      "dropped_total",
				Help:      "Total number of telemetry messages dropped by bounded buffers, by stream",
			},
			[]string{"stream"},
		),

		CallbackPanics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "magicbot",
				Subsystem: "stream",
				Name:      "callback_panics_total",
				Help:      "Total number of panics recovered at the stream dispatch boundary",
			},
			[]string{"stream"},
		),

		CommandsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "magicbot",
				Subsystem: "lowlevel",
				Name:      "commands_published_total",
				Help:      "Total number of low-level joint commands published, by limb",
			},
			[]string{"limb"},
		),

		LinkConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "magicbot",
				Subsystem: "link",
				Name:      "connected",
				Help:      "Whether the robot link is connected (1) or not (0)",
			},
		),

		LinkReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "magicbot",
				Subsystem: "link",
				Name:      "reconnects_total",
				Help:      "Total number of link reconnections",
			},
		),

		LinkRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "magicbot",
				Subsystem: "link",
				Name:      "rtt_seconds",
				Help:      "Round-trip time to the robot in seconds",
			},
		),
	}
}

// ObserveCommand records one command outcome.
func (m *Metrics) ObserveCommand(controller, operation string, code types.ErrorCode, elapsed time.Duration) {
	m.CommandsTotal.WithLabelValues(controller, operation, code.String()).Inc()
	m.CommandDuration.WithLabelValues(controller, operation).Observe(elapsed.Seconds())
}
