package slamnav

import (
	"bytes"
	"encoding/json"
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
	c := New(ml, WithTimeout(200*time.Millisecond))
	require.NoError(t, c.Initialize())
	t.Cleanup(c.Shutdown)
	return c, ml
}

func TestActivateSlamModeLocalizationRequiresMapPath(t *testing.T) {
	c, ml := newController(t)

	st := c.ActivateSlamMode(types.SlamModeLocalization, "")
	assert.Equal(t, types.CodeInternalError, st.Code)
	assert.Empty(t, ml.Requests(), "invalid transition must not reach the wire")

	st = c.ActivateSlamMode(types.SlamModeLocalization, "/maps/office")
	assert.True(t, st.IsOK())
	reqs := ml.RequestsTo(link.SubjectSlamModeSet)
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"mode":2,"map_path":"/maps/office"}`, string(reqs[0].Payload))
}

func TestActivateSlamModeRejectsUnknownMode(t *testing.T) {
	c, ml := newController(t)

	st := c.ActivateSlamMode(types.SlamMode(9), "")
	assert.Equal(t, types.CodeInternalError, st.Code)
	assert.Empty(t, ml.Requests())
}

func TestCurrentSlamModeUsesCacheAfterSuccessfulTransition(t *testing.T) {
	c, ml := newController(t)

	require.True(t, c.ActivateSlamMode(types.SlamModeMapping, "").IsOK())

	mode, st := c.CurrentSlamMode()
	assert.True(t, st.IsOK())
	assert.Equal(t, types.SlamModeMapping, mode)
	assert.Empty(t, ml.RequestsTo(link.SubjectSlamModeGet), "fresh cache must not re-query")
}

func TestCurrentSlamModeResyncsAfterTimeout(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptError(link.SubjectSlamModeSet, sdkerrors.ErrRequestTimeout)
	st := c.ActivateSlamMode(types.SlamModeMapping, "")
	require.Equal(t, types.CodeTimeout, st.Code)

	// The transition outcome is unknown, so the next read must ask the robot.
	ml.ScriptOK(link.SubjectSlamModeGet, slamModePayload{Mode: types.SlamModeMapping})
	mode, st := c.CurrentSlamMode()
	require.True(t, st.IsOK())
	assert.Equal(t, types.SlamModeMapping, mode)
	assert.Len(t, ml.RequestsTo(link.SubjectSlamModeGet), 1)

	// Resync clears staleness; further reads stay local.
	_, st = c.CurrentSlamMode()
	require.True(t, st.IsOK())
	assert.Len(t, ml.RequestsTo(link.SubjectSlamModeGet), 1)
}

func TestStartMappingRequiresMappingMode(t *testing.T) {
	c, ml := newController(t)

	st := c.StartMapping()
	assert.Equal(t, types.CodeInternalError, st.Code)
	assert.Empty(t, ml.RequestsTo(link.SubjectMappingStart))

	require.True(t, c.ActivateSlamMode(types.SlamModeMapping, "").IsOK())
	st = c.StartMapping()
	assert.True(t, st.IsOK())
	assert.Len(t, ml.RequestsTo(link.SubjectMappingStart), 1)
}

func TestCancelMappingRequiresMappingMode(t *testing.T) {
	c, ml := newController(t)

	require.True(t, c.ActivateSlamMode(types.SlamModeLocalization, "/maps/office").IsOK())
	st := c.CancelMapping()
	assert.Equal(t, types.CodeInternalError, st.Code)
	assert.Empty(t, ml.RequestsTo(link.SubjectMappingCancel))
}

func TestSaveMapValidation(t *testing.T) {
	c, ml := newController(t)

	st := c.SaveMap("")
	assert.Equal(t, types.CodeInternalError, st.Code)
	assert.Empty(t, ml.Requests())

	// Outside mapping mode the call is still forwarded; the robot decides.
	st = c.SaveMap("office")
	assert.True(t, st.IsOK())
	reqs := ml.RequestsTo(link.SubjectMapSave)
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"map_name":"office"}`, string(reqs[0].Payload))
}

func TestGetMapPath(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptOK(link.SubjectMapGetPath, mapPathReply{
		MapPath: []string{"/maps/office/2d", "/maps/office/3d"},
	})
	paths, st := c.GetMapPath("office")
	require.True(t, st.IsOK())
	assert.Equal(t, []string{"/maps/office/2d", "/maps/office/3d"}, paths)

	_, st = c.GetMapPath("")
	assert.Equal(t, types.CodeInternalError, st.Code)
}

func TestGetAllMapInfo(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptOK(link.SubjectMapGetAll, types.AllMapInfo{
		CurrentMapName: "office",
		MapInfos: []types.MapInfo{
			{MapName: "office"},
			{MapName: "warehouse"},
		},
	})
	info, st := c.GetAllMapInfo()
	require.True(t, st.IsOK())
	assert.Equal(t, "office", info.CurrentMapName)
	assert.Len(t, info.MapInfos, 2)
}

func TestActivateNavModeGridMapRequiresMapPath(t *testing.T) {
	c, ml := newController(t)

	st := c.ActivateNavMode(types.NavModeGridMap, "")
	assert.Equal(t, types.CodeInternalError, st.Code)
	assert.Empty(t, ml.Requests())

	st = c.ActivateNavMode(types.NavModeGridMap, "/maps/office")
	assert.True(t, st.IsOK())

	mode, st := c.CurrentNavMode()
	require.True(t, st.IsOK())
	assert.Equal(t, types.NavModeGridMap, mode)
	assert.Empty(t, ml.RequestsTo(link.SubjectNavModeGet))
}

func TestCurrentNavModeResyncsAfterTimeout(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptError(link.SubjectNavModeSet, sdkerrors.ErrRequestTimeout)
	st := c.ActivateNavMode(types.NavModeIdle, "")
	require.Equal(t, types.CodeTimeout, st.Code)

	ml.ScriptOK(link.SubjectNavModeGet, navModePayload{Mode: types.NavModeGridMap})
	mode, st := c.CurrentNavMode()
	require.True(t, st.IsOK())
	assert.Equal(t, types.NavModeGridMap, mode)
}

func TestSetNavTargetFillsID(t *testing.T) {
	c, ml := newController(t)

	st := c.SetNavTarget(types.NavTarget{FrameID: "map"})
	require.True(t, st.IsOK())

	reqs := ml.RequestsTo(link.SubjectNavTargetSet)
	require.Len(t, reqs, 1)
	var sent types.NavTarget
	require.NoError(t, json.Unmarshal(reqs[0].Payload, &sent))
	assert.NotZero(t, sent.ID, "zero ID must be filled in")

	st = c.SetNavTarget(types.NavTarget{ID: 77, FrameID: "map"})
	require.True(t, st.IsOK())
	reqs = ml.RequestsTo(link.SubjectNavTargetSet)
	require.Len(t, reqs, 2)
	require.NoError(t, json.Unmarshal(reqs[1].Payload, &sent))
	assert.Equal(t, int64(77), sent.ID)
}

func TestNavTaskLifecycleCalls(t *testing.T) {
	c, ml := newController(t)

	assert.True(t, c.PauseNavTask().IsOK())
	assert.True(t, c.ResumeNavTask().IsOK())
	assert.True(t, c.CancelNavTask().IsOK())
	assert.Len(t, ml.RequestsTo(link.SubjectNavTaskPause), 1)
	assert.Len(t, ml.RequestsTo(link.SubjectNavTaskResume), 1)
	assert.Len(t, ml.RequestsTo(link.SubjectNavTaskCancel), 1)
}

func TestGetNavTaskStatus(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptOK(link.SubjectNavTaskStatus, types.NavStatus{
		ID:     42,
		Status: types.NavStatusEndSuccess,
	})
	status, st := c.GetNavTaskStatus()
	require.True(t, st.IsOK())
	assert.Equal(t, int64(42), status.ID)
	assert.True(t, status.Status.Terminal())
}

func TestGetCurrentLocalizationInfo(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptOK(link.SubjectLocalization, types.LocalizationInfo{
		IsLocalization: true,
		Pose:           types.Pose3DEuler{Position: [3]float64{1.5, -2, 0}},
	})
	info, st := c.GetCurrentLocalizationInfo()
	require.True(t, st.IsOK())
	assert.True(t, info.IsLocalization)
	assert.Equal(t, 1.5, info.Pose.Position[0])
}

func TestOdometryStreamLifecycle(t *testing.T) {
	c, ml := newController(t)

	got := make(chan types.Odometry, 1)
	c.SubscribeOdometry(func(o types.Odometry) { got <- o })

	require.True(t, c.OpenOdometryStream().IsOK())
	reqs := ml.RequestsTo(link.SubjectOdometryCtrl)
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"action":"open"}`, string(reqs[0].Payload))

	ml.InjectJSON(link.StreamOdometry, types.Odometry{Timestamp: 99})
	select {
	case o := <-got:
		assert.Equal(t, int64(99), o.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("odometry callback not invoked")
	}

	require.True(t, c.CloseOdometryStream().IsOK())
	assert.Zero(t, ml.SubscriberCount(link.StreamOdometry))
	c.UnsubscribeOdometry()
}

func TestOdometryStreamRequiresInitialize(t *testing.T) {
	c := New(testutil.NewMockLink())

	st := c.OpenOdometryStream()
	assert.Equal(t, types.CodeInternalError, st.Code)
	st = c.CloseOdometryStream()
	assert.Equal(t, types.CodeInternalError, st.Code)
	c.SubscribeOdometry(func(types.Odometry) {})
	c.UnsubscribeOdometry()
	c.Shutdown()
}

func TestGetPointCloudMap(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptOK(link.SubjectPointCloudMap, types.PointCloud2{Width: 128, Height: 1})
	pc, st := c.GetPointCloudMap(2 * time.Second)
	require.True(t, st.IsOK())
	assert.Equal(t, int32(128), pc.Width)
}

func TestServiceErrorSurfacesMessage(t *testing.T) {
	c, ml := newController(t)

	ml.ScriptServiceError(link.SubjectMapLoad, 12, "map not found")
	st := c.LoadMap("ghost")
	assert.Equal(t, types.CodeServiceError, st.Code)
	assert.Contains(t, st.Message, "map not found")
}

func TestWriteMapImagePGM(t *testing.T) {
	img := types.MapImageData{
		Width:        3,
		Height:       2,
		MaxGrayValue: 255,
		Image:        []byte{0, 128, 255, 10, 20, 30},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMapImagePGM(&buf, img))
	assert.Equal(t, "P5\n3 2\n255\n\x00\x80\xff\n\x14\x1e", buf.String())

	img.Image = img.Image[:4]
	assert.Error(t, WriteMapImagePGM(&buf, img))
	assert.Error(t, WriteMapImagePGM(&buf, types.MapImageData{}))
}
