package sensor

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

func newController(t *testing.T) (*Controller, *testutil.MockLink) {
	t.Helper()
	ml := testutil.NewMockLink()
	c := New(ml)
	require.NoError(t, c.Initialize())
	t.Cleanup(c.Shutdown)
	return c, ml
}

func TestLidar_OpenAttachesStreams(t *testing.T) {
	c, ml := newController(t)

	require.True(t, c.OpenLidar().IsOK())
	assert.Equal(t, 1, ml.SubscriberCount(link.StreamLidarImu))
	assert.Equal(t, 1, ml.SubscriberCount(link.StreamLidarPointCloud))

	imus := make(chan types.Imu, 1)
	c.SubscribeLidarImu(func(i types.Imu) { imus <- i })

	ml.InjectJSON(link.StreamLidarImu, types.Imu{Temperature: 31.5})
	select {
	case i := <-imus:
		assert.InDelta(t, 31.5, i.Temperature, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("imu sample was not delivered")
	}

	require.True(t, c.CloseLidar().IsOK())
	assert.Equal(t, 0, ml.SubscriberCount(link.StreamLidarImu))
	assert.Equal(t, 0, ml.SubscriberCount(link.StreamLidarPointCloud))
}

func TestRgbd_OpenFailureLeavesStreamsDetached(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptServiceError(link.SubjectRgbdCtrl, 2, "camera fault")
	st := c.OpenHeadRgbdCamera()
	assert.Equal(t, types.CodeServiceError, st.Code)
	assert.Equal(t, 0, ml.SubscriberCount(link.StreamRgbdColorImage))
	assert.Equal(t, 0, ml.SubscriberCount(link.StreamRgbdDepthImage))
	assert.Equal(t, 0, ml.SubscriberCount(link.StreamRgbdCameraInfo))
}

func TestBinocular_OpenClose(t *testing.T) {
	c, ml := newController(t)

	require.True(t, c.OpenBinocularCamera().IsOK())
	assert.Equal(t, 1, ml.SubscriberCount(link.StreamBinocularFrame))
	assert.Equal(t, 1, ml.SubscriberCount(link.StreamBinocularInfo))

	frames := make(chan types.BinocularCameraFrame, 1)
	c.SubscribeBinocularImage(func(f types.BinocularCameraFrame) { frames <- f })
	ml.InjectJSON(link.StreamBinocularFrame, types.BinocularCameraFrame{})
	select {
	case <-frames:
	case <-time.After(time.Second):
		t.Fatal("frame was not delivered")
	}

	require.True(t, c.CloseBinocularCamera().IsOK())
	assert.Equal(t, 0, ml.SubscriberCount(link.StreamBinocularFrame))
}

func TestSensor_SubscribeWhileClosedThenOpen(t *testing.T) {
	c, ml := newController(t)

	clouds := make(chan types.PointCloud2, 1)
	c.SubscribeLidarPointCloud(func(p types.PointCloud2) { clouds <- p })

	// Nothing flows while the sensor is off.
	assert.Equal(t, 0, ml.SubscriberCount(link.StreamLidarPointCloud))

	require.True(t, c.OpenLidar().IsOK())
	ml.InjectJSON(link.StreamLidarPointCloud, types.PointCloud2{Width: 64})
	select {
	case p := <-clouds:
		assert.Equal(t, int32(64), p.Width)
	case <-time.After(time.Second):
		t.Fatal("point cloud was not delivered")
	}
}

func TestSensor_PowerTimeout(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptError(link.SubjectLidarCtrl, sdkerrors.ErrRequestTimeout)
	assert.Equal(t, types.CodeTimeout, c.OpenLidar().Code)
}

func TestSensor_NotInitialized(t *testing.T) {
	c := New(testutil.NewMockLink())

	assert.Equal(t, types.CodeInternalError, c.OpenLidar().Code)
	c.Shutdown() // no-op before Initialize
}
