package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/testutil"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

func TestGetCurrentState(t *testing.T) {
	ml := testutil.NewMockLink()
	c := New(ml, WithTimeout(200*time.Millisecond))
	require.NoError(t, c.Initialize())
	defer c.Shutdown()

	ml.ScriptOK(link.SubjectRobotState, types.RobotState{
		Faults: []types.Fault{
			{ErrorCode: 0x1305, ErrorMessage: "LIDAR node lost"},
		},
		BmsData: types.BmsData{
			BatteryPercentage: 87.5,
			BatteryState:      types.BatteryGood,
			PowerSupplyStatus: types.PowerSupplyDischarging,
		},
	})

	state, st := c.GetCurrentState()
	require.True(t, st.IsOK())
	require.Len(t, state.Faults, 1)
	assert.Equal(t, 0x1305, state.Faults[0].ErrorCode)
	assert.Equal(t, "LIDAR node lost", types.FaultDescription(state.Faults[0].ErrorCode))
	assert.Equal(t, float32(87.5), state.BmsData.BatteryPercentage)
}

func TestGetCurrentStateNoFaults(t *testing.T) {
	ml := testutil.NewMockLink()
	c := New(ml)

	state, st := c.GetCurrentState()
	require.True(t, st.IsOK())
	assert.Empty(t, state.Faults)
}

func TestGetCurrentStateTimeout(t *testing.T) {
	ml := testutil.NewMockLink()
	c := New(ml)
	ml.ScriptError(link.SubjectRobotState, sdkerrors.ErrRequestTimeout)

	_, st := c.GetCurrentState(50 * time.Millisecond)
	assert.Equal(t, types.CodeTimeout, st.Code)
}

func TestGetCurrentStateDisconnected(t *testing.T) {
	ml := testutil.NewMockLink()
	ml.SetConnected(false)
	c := New(ml)

	_, st := c.GetCurrentState()
	assert.Equal(t, types.CodeServiceNotReady, st.Code)
}

func TestFaultDescriptionUnknownCode(t *testing.T) {
	assert.Equal(t, "Unknown fault", types.FaultDescription(0xFFFF))
	assert.Equal(t, "No fault", types.FaultDescription(0))
}
