package robot

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/testutil"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

// fakeConnector adds a connection lifecycle to the mock link.
type fakeConnector struct {
	*testutil.MockLink

	mu          sync.Mutex
	connectErrs []error
	connects    int
	closes      int
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{MockLink: testutil.NewMockLink()}
}

// failConnects queues errors returned by successive Connect calls.
func (f *fakeConnector) failConnects(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErrs = errs
}

func (f *fakeConnector) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return err
	}
	return nil
}

func (f *fakeConnector) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func newTestRobot(t *testing.T) (*Robot, *fakeConnector) {
	t.Helper()
	fc := newFakeConnector()
	r := New()
	r.newConnector = func(string) (connector, error) { return fc, nil }
	require.NoError(t, r.Initialize("192.168.54.111"))
	t.Cleanup(r.Shutdown)
	return r, fc
}

func TestShutdownBeforeInitializeIsNoOp(t *testing.T) {
	r := New()
	r.Shutdown()
	r.Shutdown()
}

func TestInitializeTwiceFails(t *testing.T) {
	r, _ := newTestRobot(t)
	assert.Error(t, r.Initialize("192.168.54.111"))
}

func TestInitializeAfterShutdownFails(t *testing.T) {
	r := New()
	r.Shutdown()
	assert.ErrorIs(t, r.Initialize("192.168.54.111"), sdkerrors.ErrShutdown)
}

func TestConnectWithoutInitialize(t *testing.T) {
	r := New()
	st := r.Connect()
	assert.Equal(t, types.CodeInternalError, st.Code)
}

func TestConnectSucceeds(t *testing.T) {
	r, fc := newTestRobot(t)
	assert.True(t, r.Connect().IsOK())
	assert.Equal(t, 1, fc.connects)
}

func TestConnectRetriesTransientFailures(t *testing.T) {
	r, fc := newTestRobot(t)
	fc.failConnects(
		sdkerrors.WrapTransient(assert.AnError, "Client", "Connect", "dial"),
		sdkerrors.WrapTransient(assert.AnError, "Client", "Connect", "dial"),
	)

	assert.True(t, r.Connect().IsOK())
	assert.Equal(t, 3, fc.connects)
}

func TestConnectDoesNotRetryInvalidConfig(t *testing.T) {
	r, fc := newTestRobot(t)
	fc.failConnects(sdkerrors.WrapInvalid(assert.AnError, "Client", "Connect", "bad local IP"))

	st := r.Connect()
	assert.Equal(t, types.CodeServiceNotReady, st.Code)
	assert.Equal(t, 1, fc.connects)
}

func TestDisconnectWithoutConnectIsOK(t *testing.T) {
	r, fc := newTestRobot(t)
	assert.True(t, r.Disconnect().IsOK())
	assert.Equal(t, 1, fc.closes)

	rUninit := New()
	assert.True(t, rUninit.Disconnect().IsOK())
}

func TestShutdownIsIdempotentAndClosesOnce(t *testing.T) {
	r, fc := newTestRobot(t)
	require.True(t, r.Connect().IsOK())

	r.Shutdown()
	r.Shutdown()
	assert.Equal(t, 1, fc.closes)
}

func TestSetMotionControlLevelTogglesLowLevelGate(t *testing.T) {
	r, fc := newTestRobot(t)

	st := r.SetMotionControlLevel(types.ControllerLevelLowLevel)
	require.True(t, st.IsOK())
	assert.True(t, r.LowLevelMotion().IsActive())

	reqs := fc.RequestsTo(link.SubjectControlLevelSet)
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"level":2}`, string(reqs[0].Payload))

	// Leaving LowLevel must stop the publish gate.
	require.True(t, r.SetMotionControlLevel(types.ControllerLevelHighLevel).IsOK())
	assert.False(t, r.LowLevelMotion().IsActive())
}

func TestSetMotionControlLevelRejectsUnknown(t *testing.T) {
	r, fc := newTestRobot(t)

	st := r.SetMotionControlLevel(types.ControllerLevelUnknown)
	assert.Equal(t, types.CodeInternalError, st.Code)
	assert.Empty(t, fc.Requests())
}

func TestSetMotionControlLevelFailureKeepsGateClosed(t *testing.T) {
	r, fc := newTestRobot(t)
	fc.ScriptServiceError(link.SubjectControlLevelSet, 3, "busy")

	st := r.SetMotionControlLevel(types.ControllerLevelLowLevel)
	assert.Equal(t, types.CodeServiceError, st.Code)
	assert.False(t, r.LowLevelMotion().IsActive())
}

func TestGetMotionControlLevel(t *testing.T) {
	r, fc := newTestRobot(t)
	fc.ScriptOK(link.SubjectControlLevelGet, controlLevelPayload{Level: types.ControllerLevelHighLevel})

	level, st := r.GetMotionControlLevel()
	require.True(t, st.IsOK())
	assert.Equal(t, types.ControllerLevelHighLevel, level)
}

func TestControllersAreWired(t *testing.T) {
	r, _ := newTestRobot(t)
	assert.NotNil(t, r.HighLevelMotion())
	assert.NotNil(t, r.LowLevelMotion())
	assert.NotNil(t, r.Audio())
	assert.NotNil(t, r.Sensor())
	assert.NotNil(t, r.SlamNav())
	assert.NotNil(t, r.Monitor())
	assert.Equal(t, Version, r.GetSDKVersion())
}

func TestConcurrentCommandsAcrossControllers(t *testing.T) {
	r, _ := newTestRobot(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, st := r.Monitor().GetCurrentState()
			assert.True(t, st.IsOK())
			st = r.HighLevelMotion().SetGait(types.GaitBalanceStand)
			assert.True(t, st.IsOK())
			st = r.Audio().SetVolume(50)
			assert.True(t, st.IsOK())
		}()
	}
	wg.Wait()
}
