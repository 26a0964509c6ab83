// Package robot is the SDK entry point. A Robot owns the connection to one
// robot and hands out the per-domain controllers built on it. Controllers
// share the connection; their lifetimes are bound to the Robot and end at
// Shutdown.
package robot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/audio"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/config"
	sdkerrors "github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/monitor"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/motion"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/natsclient"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/pkg/retry"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/sensor"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/slamnav"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

// Version is the SDK release version.
const Version = "1.0.0"

// Controller is the lifecycle every per-domain controller implements.
type Controller interface {
	Initialize() error
	Shutdown()
}

// connector is the connection surface the Robot drives. natsclient.Client
// satisfies it; tests substitute a fake.
type connector interface {
	link.Link
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
}

// Robot aggregates the connection and all controllers.
type Robot struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *metric.MetricsRegistry

	// newConnector builds the transport at Initialize time. Tests override
	// it to inject a mock.
	newConnector func(localIP string) (connector, error)

	mu          sync.Mutex
	conn        connector
	initialized bool
	shutdown    bool
	level       types.ControllerLevel

	highLevel *motion.HighLevelController
	lowLevel  *motion.LowLevelController
	audio     *audio.Controller
	sensor    *sensor.Controller
	slamNav   *slamnav.Controller
	monitor   *monitor.Controller
}

// Option configures the Robot.
type Option func(*Robot)

// WithConfig supplies a full configuration. Defaults are used otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(r *Robot) {
		if cfg != nil {
			r.cfg = cfg
		}
	}
}

// WithLogger sets the root logger; controllers derive theirs from it.
func WithLogger(log *slog.Logger) Option {
	return func(r *Robot) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMetrics exports SDK metrics through the given registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(r *Robot) { r.registry = registry }
}

// New creates an unconnected Robot. Call Initialize, then Connect.
func New(opts ...Option) *Robot {
	r := &Robot{
		cfg: config.Default(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.newConnector = func(localIP string) (connector, error) {
		clientOpts := []natsclient.ClientOption{
			natsclient.WithLocalIP(localIP),
			natsclient.WithName(r.cfg.Robot.Name),
			natsclient.WithMaxReconnects(r.cfg.Link.MaxReconnects),
			natsclient.WithReconnectWait(r.cfg.Link.ReconnectWait),
			natsclient.WithPingInterval(r.cfg.Link.PingInterval),
			natsclient.WithHealthInterval(r.cfg.Link.HealthInterval),
			natsclient.WithTimeout(r.cfg.Link.ConnectTimeout),
			natsclient.WithDrainTimeout(r.cfg.Link.DrainTimeout),
			natsclient.WithRequestTimeout(r.cfg.Timeouts.Default),
		}
		if r.registry != nil {
			clientOpts = append(clientOpts, natsclient.WithMetrics(r.registry))
		}
		return natsclient.NewClient(r.cfg.Robot.URL, clientOpts...)
	}
	return r
}

// Initialize allocates the connection and all controllers. localIP is the
// address of the host interface on the robot's network; pass "" to let the
// OS pick. Initialize must be called exactly once before Connect;
// Initialize after Shutdown fails.
func (r *Robot) Initialize(localIP string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return sdkerrors.ErrShutdown
	}
	if r.initialized {
		return fmt.Errorf("robot already initialized")
	}

	conn, err := r.newConnector(localIP)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	r.conn = conn

	r.highLevel = motion.NewHighLevel(conn,
		motion.WithHighLevelLogger(r.log),
		motion.WithHighLevelTimeout(r.cfg.Timeouts.Motion),
		motion.WithHighLevelMetrics(r.registry))
	r.lowLevel = motion.NewLowLevel(conn,
		motion.WithLowLevelLogger(r.log),
		motion.WithLowLevelMetrics(r.registry))
	r.audio = audio.New(conn,
		audio.WithLogger(r.log),
		audio.WithTimeout(r.cfg.Timeouts.Default),
		audio.WithMetrics(r.registry))
	r.sensor = sensor.New(conn,
		sensor.WithLogger(r.log),
		sensor.WithTimeout(r.cfg.Timeouts.Sensor),
		sensor.WithMetrics(r.registry))
	r.slamNav = slamnav.New(conn,
		slamnav.WithLogger(r.log),
		slamnav.WithTimeout(r.cfg.Timeouts.Default),
		slamnav.WithMetrics(r.registry))
	r.monitor = monitor.New(conn,
		monitor.WithLogger(r.log),
		monitor.WithTimeout(r.cfg.Timeouts.Default),
		monitor.WithMetrics(r.registry))

	for _, c := range r.controllers() {
		if err := c.Initialize(); err != nil {
			return fmt.Errorf("initialize controllers: %w", err)
		}
	}

	r.lowLevel.SetPeriodMs(r.cfg.Motion.PublishPeriodMs)
	r.initialized = true
	r.log.Info("robot initialized", "local_ip", localIP, "url", r.cfg.Robot.URL)
	return nil
}

func (r *Robot) controllers() []Controller {
	return []Controller{r.highLevel, r.lowLevel, r.audio, r.sensor, r.slamNav, r.monitor}
}

// Connect establishes the session. Transient connection failures are
// retried with backoff; a TIMEOUT or SERVICE_NOT_READY status means the
// robot stayed unreachable through all attempts.
func (r *Robot) Connect() types.Status {
	r.mu.Lock()
	conn := r.conn
	initialized := r.initialized
	shutdown := r.shutdown
	r.mu.Unlock()

	if shutdown {
		return types.Statusf(types.CodeServiceNotReady, "robot is shut down")
	}
	if !initialized {
		return types.InternalErrorf("robot not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		4*r.cfg.Link.ConnectTimeout)
	defer cancel()

	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}, func() error {
		err := conn.Connect(ctx)
		if err == nil {
			return nil
		}
		if !sdkerrors.IsTransient(err) {
			return retry.NonRetryable(err)
		}
		return err
	})
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return types.Statusf(types.CodeTimeout, "connect: %v", err)
		default:
			return types.Statusf(types.CodeServiceNotReady, "connect: %v", err)
		}
	}
	return types.OK()
}

// Disconnect tears the session down. Safe to call if never connected.
func (r *Robot) Disconnect() types.Status {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()

	if conn == nil {
		return types.OK()
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Link.DrainTimeout)
	defer cancel()

	if err := conn.Close(ctx); err != nil {
		return types.Statusf(types.CodeServiceError, "disconnect: %v", err)
	}
	return types.OK()
}

// Shutdown releases all resources: it stops low-level publishing, closes
// every stream and disconnects. Idempotent, safe before Initialize and
// safe to call from a signal handler; teardown is bounded by the drain
// timeout and never blocks on the remote side.
func (r *Robot) Shutdown() {
	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return
	}
	r.shutdown = true
	initialized := r.initialized
	conn := r.conn
	r.mu.Unlock()

	if !initialized {
		return
	}

	for _, c := range r.controllers() {
		c.Shutdown()
	}
	if conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Link.DrainTimeout)
		defer cancel()
		if err := conn.Close(ctx); err != nil {
			r.log.Warn("failed to close connection", "error", err)
		}
	}
	r.log.Info("robot shut down")
}

// IsConnected reports whether the session is up.
func (r *Robot) IsConnected() bool {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	return conn != nil && conn.IsConnected()
}

// GetSDKVersion returns the SDK release version.
func (r *Robot) GetSDKVersion() string { return Version }

type controlLevelPayload struct {
	Level types.ControllerLevel `json:"level"`
}

// SetMotionControlLevel switches which motion controller may issue
// commands. Switching is connection-wide: leaving LowLevel stops the
// low-level publish gate so a stale fixed-rate loop cannot keep actuating.
func (r *Robot) SetMotionControlLevel(level types.ControllerLevel, timeout ...time.Duration) types.Status {
	if level != types.ControllerLevelHighLevel && level != types.ControllerLevelLowLevel {
		return types.InternalErrorf("invalid controller level %d", level)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized || r.shutdown {
		return types.InternalErrorf("robot not initialized")
	}

	d := r.cfg.Timeouts.Default
	if len(timeout) > 0 && timeout[0] > 0 {
		d = timeout[0]
	}
	st := link.Call(r.conn, link.SubjectControlLevelSet, controlLevelPayload{Level: level}, nil, d)
	if !st.IsOK() {
		return st
	}

	r.level = level
	r.lowLevel.SetActive(level == types.ControllerLevelLowLevel)
	return st
}

// GetMotionControlLevel queries the active controller level from the robot.
func (r *Robot) GetMotionControlLevel(timeout ...time.Duration) (types.ControllerLevel, types.Status) {
	r.mu.Lock()
	conn := r.conn
	initialized := r.initialized
	r.mu.Unlock()

	if !initialized {
		return types.ControllerLevelUnknown, types.InternalErrorf("robot not initialized")
	}

	d := r.cfg.Timeouts.Default
	if len(timeout) > 0 && timeout[0] > 0 {
		d = timeout[0]
	}
	var out controlLevelPayload
	st := link.Call(conn, link.SubjectControlLevelGet, nil, &out, d)
	if !st.IsOK() {
		return types.ControllerLevelUnknown, st
	}
	return out.Level, st
}

// HighLevelMotion returns the high-level motion controller.
func (r *Robot) HighLevelMotion() *motion.HighLevelController { return r.highLevel }

// LowLevelMotion returns the low-level motion controller.
func (r *Robot) LowLevelMotion() *motion.LowLevelController { return r.lowLevel }

// Audio returns the audio controller.
func (r *Robot) Audio() *audio.Controller { return r.audio }

// Sensor returns the sensor controller.
func (r *Robot) Sensor() *sensor.Controller { return r.sensor }

// SlamNav returns the SLAM/navigation controller.
func (r *Robot) SlamNav() *slamnav.Controller { return r.slamNav }

// Monitor returns the state monitor controller.
func (r *Robot) Monitor() *monitor.Controller { return r.monitor }
