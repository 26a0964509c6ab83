// Package motion provides the two motion controllers: the high-level
// controller for semantic commands (gaits, tricks, joystick, head) and the
// low-level controller for direct joint control with caller-driven
// fixed-rate command publishing. Exactly one of the two levels is active
// per connection; the connection manager switches between them.
package motion

import (
	"log/slog"
	"math"
	"time"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

// MaxHeadShakeRad bounds HeadMove's shake angle. Left is negative, right
// is positive. float32 so the bound compares exactly against the command
// value without widening.
const MaxHeadShakeRad float32 = 0.698

// Gait and trick changes move the whole body, so they get a longer default
// than ordinary commands.
const defaultHighLevelTimeout = 10 * time.Second

const headMoveTimeout = 5 * time.Second

// HighLevelOption configures the HighLevelController.
type HighLevelOption func(*HighLevelController)

// WithHighLevelLogger sets the controller logger.
func WithHighLevelLogger(log *slog.Logger) HighLevelOption {
	return func(c *HighLevelController) { c.log = log }
}

// WithHighLevelTimeout sets the default command timeout.
func WithHighLevelTimeout(d time.Duration) HighLevelOption {
	return func(c *HighLevelController) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHighLevelMetrics exports command metrics through the registry.
func WithHighLevelMetrics(registry *metric.MetricsRegistry) HighLevelOption {
	return func(c *HighLevelController) {
		if registry != nil {
			c.metrics = registry.CoreMetrics()
		}
	}
}

// HighLevelController issues semantic motion commands. All methods are
// safe for concurrent use.
type HighLevelController struct {
	link    link.Link
	log     *slog.Logger
	metrics *metric.Metrics
	timeout time.Duration
}

// NewHighLevel creates a high-level motion controller on the given link.
func NewHighLevel(l link.Link, opts ...HighLevelOption) *HighLevelController {
	c := &HighLevelController{
		link:    l,
		log:     slog.Default(),
		timeout: defaultHighLevelTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("controller", "motion_high")
	return c
}

// Initialize prepares the controller. The high-level controller holds no
// streams, so this never fails.
func (c *HighLevelController) Initialize() error { return nil }

// Shutdown releases controller resources. Idempotent.
func (c *HighLevelController) Shutdown() {}

func (c *HighLevelController) pickTimeout(def time.Duration, timeout []time.Duration) time.Duration {
	if len(timeout) > 0 && timeout[0] > 0 {
		return timeout[0]
	}
	return def
}

func (c *HighLevelController) observe(op string, st types.Status, start time.Time) types.Status {
	if c.metrics != nil {
		c.metrics.ObserveCommand("motion_high", op, st.Code, time.Since(start))
	}
	if !st.IsOK() {
		c.log.Warn("command failed", "operation", op, "status", st.String())
	}
	return st
}

type gaitPayload struct {
	GaitMode types.GaitMode `json:"gait_mode"`
}

// SetGait switches the robot's gait mode. Gait transitions take several
// seconds while the robot shifts posture.
func (c *HighLevelController) SetGait(mode types.GaitMode, timeout ...time.Duration) types.Status {
	start := time.Now()
	st := link.Call(c.link, link.SubjectGaitSet,
		gaitPayload{GaitMode: mode}, nil, c.pickTimeout(c.timeout, timeout))
	return c.observe("SetGait", st, start)
}

// GetGait reads the current gait mode.
func (c *HighLevelController) GetGait(timeout ...time.Duration) (types.GaitMode, types.Status) {
	start := time.Now()
	var out gaitPayload
	st := link.Call(c.link, link.SubjectGaitGet, nil, &out, c.pickTimeout(c.timeout, timeout))
	return out.GaitMode, c.observe("GetGait", st, start)
}

type trickPayload struct {
	TrickAction types.TrickAction `json:"trick_action"`
}

// ExecuteTrick runs a predefined action sequence. The robot only accepts
// tricks under GaitBalanceStand.
func (c *HighLevelController) ExecuteTrick(action types.TrickAction, timeout ...time.Duration) types.Status {
	start := time.Now()
	st := link.Call(c.link, link.SubjectTrick,
		trickPayload{TrickAction: action}, nil, c.pickTimeout(c.timeout, timeout))
	return c.observe("ExecuteTrick", st, start)
}

// SendJoystickCommand streams one real-time locomotion command. Axis
// values must be within [-1, 1]. Recommended send rate is 20 Hz; the
// command is published without waiting for a reply.
func (c *HighLevelController) SendJoystickCommand(cmd types.JoystickCommand) types.Status {
	start := time.Now()
	for _, v := range []float32{cmd.LeftXAxis, cmd.LeftYAxis, cmd.RightXAxis, cmd.RightYAxis} {
		if v < -1 || v > 1 || math.IsNaN(float64(v)) {
			return c.observe("SendJoystickCommand",
				types.InternalErrorf("joystick axis %v out of range [-1,1]", v), start)
		}
	}

	if c.link == nil || !c.link.IsConnected() {
		return c.observe("SendJoystickCommand",
			types.Statusf(types.CodeServiceNotReady, "not connected"), start)
	}
	data, err := marshalCommand(cmd)
	if err != nil {
		return c.observe("SendJoystickCommand",
			types.InternalErrorf("encode joystick command: %v", err), start)
	}
	if err := c.link.Publish(link.StreamJoystick, data); err != nil {
		return c.observe("SendJoystickCommand", link.StatusFromTransport(link.StreamJoystick, err), start)
	}
	return c.observe("SendJoystickCommand", types.OK(), start)
}

type headMovePayload struct {
	ShakeAngle float32 `json:"shake_angle"`
}

// HeadMove turns the head to the given shake angle in radians, negative
// left and positive right, within [-MaxHeadShakeRad, MaxHeadShakeRad].
func (c *HighLevelController) HeadMove(shakeAngle float32, timeout ...time.Duration) types.Status {
	start := time.Now()
	if shakeAngle > MaxHeadShakeRad || shakeAngle < -MaxHeadShakeRad || math.IsNaN(float64(shakeAngle)) {
		return c.observe("HeadMove",
			types.InternalErrorf("shake angle %v exceeds %v rad", shakeAngle, MaxHeadShakeRad), start)
	}
	st := link.Call(c.link, link.SubjectHeadMove,
		headMovePayload{ShakeAngle: shakeAngle}, nil, c.pickTimeout(headMoveTimeout, timeout))
	return c.observe("HeadMove", st, start)
}
