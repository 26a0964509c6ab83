package types

// Per-limb joint counts. Joint sequences are indexed positionally; the
// fixed-length array types below prevent silent index-order and length bugs.
const (
	HandJointCount  = 6  // joints per dexterous hand
	HandCount       = 2  // left and right hand
	HeadJointCount  = 2  // head joints
	ArmJointCount   = 14 // both arms, left 7 then right 7
	WaistJointCount = 1  // waist joints
	LegJointCount   = 12 // both legs, left 6 then right 6
)

// OperationModeUnready is the joint operation mode before a joint has been
// commanded into an operational control mode. The remote side enforces the
// legality of mode transitions; the client only transports the field.
const OperationModeUnready int16 = 200

// OperationModePositionPID is the position-PID control mode.
const OperationModePositionPID int16 = 4

// ControllerLevel distinguishes which motion controller may issue commands.
// Exactly one level is active per connection.
type ControllerLevel int8

// Motion control levels.
const (
	ControllerLevelUnknown   ControllerLevel = 0
	ControllerLevelHighLevel ControllerLevel = 1
	ControllerLevelLowLevel  ControllerLevel = 2
)

// String returns the string representation of ControllerLevel.
func (l ControllerLevel) String() string {
	switch l {
	case ControllerLevelHighLevel:
		return "high_level"
	case ControllerLevelLowLevel:
		return "low_level"
	default:
		return "unknown"
	}
}

// GaitMode selects the robot's high-level locomotion state machine mode.
type GaitMode int32

// Gait modes understood by the motion service.
const (
	GaitPassive       GaitMode = 0   // idle
	GaitRecoveryStand GaitMode = 1   // standing lock / recovery
	GaitBalanceStand  GaitMode = 46  // balanced standing, supports movement
	GaitArmSwingWalk  GaitMode = 78  // arm swinging walk
	GaitHumanoidWalk  GaitMode = 79  // humanoid walking
	GaitLowLevelSDK   GaitMode = 200 // low-level control SDK mode
)

// TrickAction identifies a predefined complex action sequence. Tricks are
// only accepted by the remote side under GaitBalanceStand.
type TrickAction int32

// Trick action identifiers.
const (
	ActionNone                   TrickAction = 0
	ActionShakeLeftHandReachout  TrickAction = 215
	ActionShakeLeftHandWithdraw  TrickAction = 216
	ActionShakeRightHandReachout TrickAction = 217
	ActionShakeRightHandWithdraw TrickAction = 218
	ActionShakeHead              TrickAction = 220
	ActionLeftGreeting           TrickAction = 300
	ActionRightGreeting          TrickAction = 301
	ActionTurnLeftIntroduceHigh  TrickAction = 304
	ActionTurnLeftIntroduceLow   TrickAction = 305
	ActionTurnRightIntroduceHigh TrickAction = 306
	ActionTurnRightIntroduceLow  TrickAction = 307
	ActionWelcome                TrickAction = 340
)

// JoystickCommand is a real-time high-level locomotion command. Axis values
// range from -1.0 to 1.0 with 0 at neutral. Recommended send rate is 20 Hz.
type JoystickCommand struct {
	LeftXAxis  float32 `json:"left_x_axis"`
	LeftYAxis  float32 `json:"left_y_axis"`
	RightXAxis float32 `json:"right_x_axis"`
	RightYAxis float32 `json:"right_y_axis"`
}

// SingleJointCommand is the control record for one joint. OperationMode is
// part of every command; joints never transition modes implicitly.
type SingleJointCommand struct {
	OperationMode int16   `json:"operation_mode"`
	Pos           float32 `json:"pos"` // target position, rad or m
	Vel           float32 `json:"vel"` // target velocity, rad/s or m/s
	Toq           float32 `json:"toq"` // target torque, Nm
	Kp            float32 `json:"kp"`  // position loop gain
	Kd            float32 `json:"kd"`  // velocity loop gain
}

// SingleJointState is the measured state of one joint.
type SingleJointState struct {
	StatusWord int16   `json:"status_word"`
	PosH       float32 `json:"posH"` // high encoder reading
	PosL       float32 `json:"posL"` // low encoder reading
	Vel        float32 `json:"vel"`
	Toq        float32 `json:"toq"`
	Current    float32 `json:"current"`
	ErrCode    int16   `json:"err_code"`
}

// ArmJointCommand commands all 14 arm joints, left arm first.
type ArmJointCommand struct {
	Timestamp int64                             `json:"timestamp"` // ns
	Joints    [ArmJointCount]SingleJointCommand `json:"joints"`
}

// LeftArm returns the left arm's 7 joint command slots.
func (c *ArmJointCommand) LeftArm() []SingleJointCommand { return c.Joints[:ArmJointCount/2] }

// RightArm returns the right arm's 7 joint command slots.
func (c *ArmJointCommand) RightArm() []SingleJointCommand { return c.Joints[ArmJointCount/2:] }

// ArmJointState carries all 14 arm joint states, left arm first.
type ArmJointState struct {
	Timestamp int64                           `json:"timestamp"`
	Joints    [ArmJointCount]SingleJointState `json:"joints"`
}

// LegJointCommand commands all 12 leg joints, left leg first.
type LegJointCommand struct {
	Timestamp int64                             `json:"timestamp"`
	Joints    [LegJointCount]SingleJointCommand `json:"joints"`
}

// LeftLeg returns the left leg's 6 joint command slots.
func (c *LegJointCommand) LeftLeg() []SingleJointCommand { return c.Joints[:LegJointCount/2] }

// RightLeg returns the right leg's 6 joint command slots.
func (c *LegJointCommand) RightLeg() []SingleJointCommand { return c.Joints[LegJointCount/2:] }

// LegJointState carries all 12 leg joint states, left leg first.
type LegJointState struct {
	Timestamp int64                           `json:"timestamp"`
	Joints    [LegJointCount]SingleJointState `json:"joints"`
}

// HeadJointCommand commands both head joints.
type HeadJointCommand struct {
	Timestamp int64                              `json:"timestamp"`
	Joints    [HeadJointCount]SingleJointCommand `json:"joints"`
}

// HeadJointState carries both head joint states.
type HeadJointState struct {
	Timestamp int64                            `json:"timestamp"`
	Joints    [HeadJointCount]SingleJointState `json:"joints"`
}

// WaistJointCommand commands the waist joint.
type WaistJointCommand struct {
	Timestamp int64                               `json:"timestamp"`
	Joints    [WaistJointCount]SingleJointCommand `json:"joints"`
}

// WaistJointState carries the waist joint state.
type WaistJointState struct {
	Timestamp int64                             `json:"timestamp"`
	Joints    [WaistJointCount]SingleJointState `json:"joints"`
}

// SingleHandJointCommand is the control record for one dexterous hand.
type SingleHandJointCommand struct {
	OperationMode int16                   `json:"operation_mode"`
	Pos           [HandJointCount]float32 `json:"pos"`
}

// HandCommand commands both hands, left hand first.
type HandCommand struct {
	Timestamp int64                             `json:"timestamp"`
	Hands     [HandCount]SingleHandJointCommand `json:"cmd"`
}

// LeftHand returns the left hand command slot.
func (c *HandCommand) LeftHand() *SingleHandJointCommand { return &c.Hands[0] }

// RightHand returns the right hand command slot.
func (c *HandCommand) RightHand() *SingleHandJointCommand { return &c.Hands[1] }

// SingleHandJointState is the measured state of one dexterous hand.
type SingleHandJointState struct {
	StatusWord int16                   `json:"status_word"`
	Pos        [HandJointCount]float32 `json:"pos"`
	Toq        [HandJointCount]float32 `json:"toq"`
	Cur        [HandJointCount]float32 `json:"cur"`
	ErrorCode  int16                   `json:"error_code"`
}

// HandState carries both hand states, left hand first.
type HandState struct {
	Timestamp int64                           `json:"timestamp"`
	Hands     [HandCount]SingleHandJointState `json:"state"`
}
