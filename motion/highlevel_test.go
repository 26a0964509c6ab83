package motion

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/testutil"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

func TestSetGait_EncodesMode(t *testing.T) {
	ml := testutil.NewMockLink()
	c := NewHighLevel(ml)

	require.True(t, c.SetGait(types.GaitBalanceStand).IsOK())

	reqs := ml.RequestsTo(link.SubjectGaitSet)
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"gait_mode":46}`, string(reqs[0].Payload))
}

func TestGetGait(t *testing.T) {
	ml := testutil.NewMockLink()
	ml.ScriptOK(link.SubjectGaitGet, map[string]int{"gait_mode": 79})
	c := NewHighLevel(ml)

	mode, st := c.GetGait()
	require.True(t, st.IsOK())
	assert.Equal(t, types.GaitHumanoidWalk, mode)
}

func TestExecuteTrick_ServiceRejection(t *testing.T) {
	ml := testutil.NewMockLink()
	ml.ScriptServiceError(link.SubjectTrick, 10, "gait must be balance stand")
	c := NewHighLevel(ml)

	st := c.ExecuteTrick(types.ActionWelcome)
	assert.Equal(t, types.CodeServiceError, st.Code)
	assert.Contains(t, st.Message, "balance stand")
}

func TestSendJoystickCommand_PublishesWithoutReply(t *testing.T) {
	ml := testutil.NewMockLink()
	c := NewHighLevel(ml)

	st := c.SendJoystickCommand(types.JoystickCommand{LeftYAxis: 0.5})
	require.True(t, st.IsOK())

	pubs := ml.PublishesTo(link.StreamJoystick)
	require.Len(t, pubs, 1)

	var sent types.JoystickCommand
	require.NoError(t, json.Unmarshal(pubs[0].Payload, &sent))
	assert.InDelta(t, 0.5, sent.LeftYAxis, 1e-6)

	// Joystick traffic never goes through request/response.
	assert.Empty(t, ml.Requests())
}

func TestSendJoystickCommand_AxisRange(t *testing.T) {
	ml := testutil.NewMockLink()
	c := NewHighLevel(ml)

	st := c.SendJoystickCommand(types.JoystickCommand{RightXAxis: 1.5})
	assert.Equal(t, types.CodeInternalError, st.Code)
	assert.Empty(t, ml.Publishes())
}

func TestHeadMove_BoundsCheck(t *testing.T) {
	ml := testutil.NewMockLink()
	c := NewHighLevel(ml)

	require.True(t, c.HeadMove(0.5).IsOK())

	// The documented range is inclusive at both ends.
	require.True(t, c.HeadMove(MaxHeadShakeRad).IsOK())
	require.True(t, c.HeadMove(-MaxHeadShakeRad).IsOK())
	require.True(t, c.HeadMove(-0.698).IsOK())

	st := c.HeadMove(0.7)
	assert.Equal(t, types.CodeInternalError, st.Code)
	st = c.HeadMove(-0.7)
	assert.Equal(t, types.CodeInternalError, st.Code)
	st = c.HeadMove(float32(math.NaN()))
	assert.Equal(t, types.CodeInternalError, st.Code)

	// Only the valid moves reached the wire.
	assert.Len(t, ml.RequestsTo(link.SubjectHeadMove), 4)
}

func TestHighLevel_TimeoutSurfaces(t *testing.T) {
	ml := testutil.NewMockLink()
	ml.ScriptError(link.SubjectGaitSet, sdkerrors.ErrRequestTimeout)
	c := NewHighLevel(ml)

	st := c.SetGait(types.GaitPassive)
	assert.Equal(t, types.CodeTimeout, st.Code)
}
