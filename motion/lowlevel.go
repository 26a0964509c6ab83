package motion

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/stream"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

// MinPeriodMs is the floor for the low-level publish period. Values below
// it are silently raised; 2 ms corresponds to the 500 Hz control rate.
const MinPeriodMs = 2.0

func marshalCommand(v any) ([]byte, error) {
	return json.Marshal(v)
}

// LowLevelOption configures the LowLevelController.
type LowLevelOption func(*LowLevelController)

// WithLowLevelLogger sets the controller logger.
func WithLowLevelLogger(log *slog.Logger) LowLevelOption {
	return func(c *LowLevelController) { c.log = log }
}

// WithLowLevelMetrics exports publish and stream metrics through the
// registry.
func WithLowLevelMetrics(registry *metric.MetricsRegistry) LowLevelOption {
	return func(c *LowLevelController) {
		if registry != nil {
			c.registry = registry
			c.metrics = registry.CoreMetrics()
		}
	}
}

// LowLevelController publishes per-limb joint commands and delivers joint
// state telemetry. Command publishing is caller-driven: the caller runs its
// own fixed-rate loop and invokes Publish*Command each cycle; the
// controller does not drive a timer. Publishing is gated on the connection
// being in low-level control.
type LowLevelController struct {
	link     link.Link
	log      *slog.Logger
	registry *metric.MetricsRegistry
	metrics  *metric.Metrics

	// periodMs is the intended publish cadence, advisory for the caller's
	// loop. Stored as millis in an atomic for lock-free reads.
	periodMs atomic.Value // float64

	// active is the publish gate, owned by the connection manager.
	active atomic.Bool

	mu sync.Mutex

	armState   *stream.Stream[types.ArmJointState]
	legState   *stream.Stream[types.LegJointState]
	headState  *stream.Stream[types.HeadJointState]
	waistState *stream.Stream[types.WaistJointState]
	handState  *stream.Stream[types.HandState]
	bodyImu    *stream.Stream[types.Imu]
}

// NewLowLevel creates a low-level motion controller on the given link.
func NewLowLevel(l link.Link, opts ...LowLevelOption) *LowLevelController {
	c := &LowLevelController{
		link: l,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("controller", "motion_low")
	c.periodMs.Store(MinPeriodMs)
	return c
}

// Initialize creates the state telemetry streams.
func (c *LowLevelController) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sopts := []stream.Option{stream.WithLogger(c.log)}
	if c.registry != nil {
		sopts = append(sopts, stream.WithMetrics(c.registry))
	}

	var err error
	if c.armState, err = stream.New[types.ArmJointState](
		"arm_state", link.StreamArmState, c.link, sopts...); err != nil {
		return err
	}
	if c.legState, err = stream.New[types.LegJointState](
		"leg_state", link.StreamLegState, c.link, sopts...); err != nil {
		return err
	}
	if c.headState, err = stream.New[types.HeadJointState](
		"head_state", link.StreamHeadState, c.link, sopts...); err != nil {
		return err
	}
	if c.waistState, err = stream.New[types.WaistJointState](
		"waist_state", link.StreamWaistState, c.link, sopts...); err != nil {
		return err
	}
	if c.handState, err = stream.New[types.HandState](
		"hand_state", link.StreamHandState, c.link, sopts...); err != nil {
		return err
	}
	if c.bodyImu, err = stream.New[types.Imu](
		"body_imu", link.StreamBodyImu, c.link, sopts...); err != nil {
		return err
	}
	return nil
}

// Shutdown disables publishing and closes all state streams. Idempotent;
// safe before Initialize.
func (c *LowLevelController) Shutdown() {
	c.active.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armState != nil {
		_ = c.armState.Close()
	}
	if c.legState != nil {
		_ = c.legState.Close()
	}
	if c.headState != nil {
		_ = c.headState.Close()
	}
	if c.waistState != nil {
		_ = c.waistState.Close()
	}
	if c.handState != nil {
		_ = c.handState.Close()
	}
	if c.bodyImu != nil {
		_ = c.bodyImu.Close()
	}
}

// SetActive opens or closes the publish gate. The connection manager calls
// this when the motion control level changes; leaving low-level control
// stops command publishing immediately.
func (c *LowLevelController) SetActive(active bool) {
	c.active.Store(active)
	if !active {
		c.log.Info("low-level command publishing disabled")
	}
}

// IsActive reports whether command publishing is enabled.
func (c *LowLevelController) IsActive() bool {
	return c.active.Load()
}

// SetPeriodMs records the intended publish cadence in milliseconds for the
// caller's loop. Values below MinPeriodMs are silently raised to the
// floor.
func (c *LowLevelController) SetPeriodMs(periodMs float64) {
	if periodMs < MinPeriodMs {
		periodMs = MinPeriodMs
	}
	c.periodMs.Store(periodMs)
}

// PeriodMs returns the configured publish cadence in milliseconds.
func (c *LowLevelController) PeriodMs() float64 {
	return c.periodMs.Load().(float64)
}

// publish validates the gate, stamps the command and sends it without
// waiting for a reply.
func (c *LowLevelController) publish(limb, subject string, stamp func(), cmd any) types.Status {
	if !c.active.Load() {
		return types.InternalErrorf("low-level control not active")
	}
	if c.link == nil || !c.link.IsConnected() {
		return types.Statusf(types.CodeServiceNotReady, "not connected")
	}

	stamp()
	data, err := marshalCommand(cmd)
	if err != nil {
		return types.InternalErrorf("encode %s command: %v", limb, err)
	}
	if err := c.link.Publish(subject, data); err != nil {
		return link.StatusFromTransport(subject, err)
	}
	if c.metrics != nil {
		c.metrics.CommandsPublished.WithLabelValues(limb).Inc()
	}
	return types.OK()
}

// PublishArmCommand sends one arm joint command. Fire-and-forget: the
// returned status reflects local validation and handoff only.
func (c *LowLevelController) PublishArmCommand(cmd *types.ArmJointCommand) types.Status {
	if cmd == nil {
		return types.InternalErrorf("arm command must not be nil")
	}
	return c.publish("arm", link.StreamArmCommand, func() {
		if cmd.Timestamp == 0 {
			cmd.Timestamp = time.Now().UnixNano()
		}
	}, cmd)
}

// PublishLegCommand sends one leg joint command.
func (c *LowLevelController) PublishLegCommand(cmd *types.LegJointCommand) types.Status {
	if cmd == nil {
		return types.InternalErrorf("leg command must not be nil")
	}
	return c.publish("leg", link.StreamLegCommand, func() {
		if cmd.Timestamp == 0 {
			cmd.Timestamp = time.Now().UnixNano()
		}
	}, cmd)
}

// PublishHeadCommand sends one head joint command.
func (c *LowLevelController) PublishHeadCommand(cmd *types.HeadJointCommand) types.Status {
	if cmd == nil {
		return types.InternalErrorf("head command must not be nil")
	}
	return c.publish("head", link.StreamHeadCommand, func() {
		if cmd.Timestamp == 0 {
			cmd.Timestamp = time.Now().UnixNano()
		}
	}, cmd)
}

// PublishWaistCommand sends one waist joint command.
func (c *LowLevelController) PublishWaistCommand(cmd *types.WaistJointCommand) types.Status {
	if cmd == nil {
		return types.InternalErrorf("waist command must not be nil")
	}
	return c.publish("waist", link.StreamWaistCommand, func() {
		if cmd.Timestamp == 0 {
			cmd.Timestamp = time.Now().UnixNano()
		}
	}, cmd)
}

// PublishHandCommand sends one hand command for both hands.
func (c *LowLevelController) PublishHandCommand(cmd *types.HandCommand) types.Status {
	if cmd == nil {
		return types.InternalErrorf("hand command must not be nil")
	}
	return c.publish("hand", link.StreamHandCommand, func() {
		if cmd.Timestamp == 0 {
			cmd.Timestamp = time.Now().UnixNano()
		}
	}, cmd)
}

// subscribeStream attaches a stream and logs attach failures; state
// subscriptions have no status to return.
func subscribeStream[T any](c *LowLevelController, s *stream.Stream[T], cb func(T)) {
	if s == nil {
		return
	}
	s.Subscribe(cb)
	if err := s.Open(); err != nil {
		c.log.Warn("failed to attach state stream", "stream", s.Name(), "error", err)
	}
}

func unsubscribeStream[T any](s *stream.Stream[T]) {
	if s == nil {
		return
	}
	s.Unsubscribe()
	_ = s.Close()
}

// SubscribeArmState installs the arm joint state callback and attaches the
// stream, replacing any previous callback.
func (c *LowLevelController) SubscribeArmState(cb func(types.ArmJointState)) {
	subscribeStream(c, c.armState, cb)
}

// UnsubscribeArmState removes the arm state callback and detaches the
// stream. Idempotent.
func (c *LowLevelController) UnsubscribeArmState() {
	unsubscribeStream(c.armState)
}

// SubscribeLegState installs the leg joint state callback.
func (c *LowLevelController) SubscribeLegState(cb func(types.LegJointState)) {
	subscribeStream(c, c.legState, cb)
}

// UnsubscribeLegState removes the leg state callback. Idempotent.
func (c *LowLevelController) UnsubscribeLegState() {
	unsubscribeStream(c.legState)
}

// SubscribeHeadState installs the head joint state callback.
func (c *LowLevelController) SubscribeHeadState(cb func(types.HeadJointState)) {
	subscribeStream(c, c.headState, cb)
}

// UnsubscribeHeadState removes the head state callback. Idempotent.
func (c *LowLevelController) UnsubscribeHeadState() {
	unsubscribeStream(c.headState)
}

// SubscribeWaistState installs the waist joint state callback.
func (c *LowLevelController) SubscribeWaistState(cb func(types.WaistJointState)) {
	subscribeStream(c, c.waistState, cb)
}

// UnsubscribeWaistState removes the waist state callback. Idempotent.
func (c *LowLevelController) UnsubscribeWaistState() {
	unsubscribeStream(c.waistState)
}

// SubscribeHandState installs the hand state callback.
func (c *LowLevelController) SubscribeHandState(cb func(types.HandState)) {
	subscribeStream(c, c.handState, cb)
}

// UnsubscribeHandState removes the hand state callback. Idempotent.
func (c *LowLevelController) UnsubscribeHandState() {
	unsubscribeStream(c.handState)
}

// SubscribeBodyImu installs the body IMU callback.
func (c *LowLevelController) SubscribeBodyImu(cb func(types.Imu)) {
	subscribeStream(c, c.bodyImu, cb)
}

// UnsubscribeBodyImu removes the body IMU callback. Idempotent.
func (c *LowLevelController) UnsubscribeBodyImu() {
	unsubscribeStream(c.bodyImu)
}
