// Package monitor exposes the robot's aggregated state snapshot: the fault
// list and battery data.
package monitor

import (
	"log/slog"
	"time"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

const defaultTimeout = 5 * time.Second

// Controller queries the robot state monitor. Safe for concurrent use.
type Controller struct {
	link    link.Link
	log     *slog.Logger
	metrics *metric.Metrics
	timeout time.Duration
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithTimeout sets the default query timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics exports query metrics through the registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Controller) {
		if registry != nil {
			c.metrics = registry.CoreMetrics()
		}
	}
}

// New creates a state monitor controller on the given link.
func New(l link.Link, opts ...Option) *Controller {
	c := &Controller{
		link:    l,
		log:     slog.Default(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("controller", "monitor")
	return c
}

// Initialize is a no-op; the monitor holds no streams.
func (c *Controller) Initialize() error { return nil }

// Shutdown is a no-op.
func (c *Controller) Shutdown() {}

// GetCurrentState fetches the robot state snapshot. Faults are a point-in-time
// list; an empty list means no active faults.
func (c *Controller) GetCurrentState(timeout ...time.Duration) (types.RobotState, types.Status) {
	start := time.Now()
	d := c.timeout
	if len(timeout) > 0 && timeout[0] > 0 {
		d = timeout[0]
	}

	var out types.RobotState
	st := link.Call(c.link, link.SubjectRobotState, nil, &out, d)
	if c.metrics != nil {
		c.metrics.ObserveCommand("monitor", "GetCurrentState", st.Code, time.Since(start))
	}
	if !st.IsOK() {
		c.log.Warn("command failed", "operation", "GetCurrentState", "status", st.String())
	}
	return out, st
}
