package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
)

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("nats://192.168.54.111:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://192.168.54.111:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsConnected())
	assert.Equal(t, -1, c.maxReconnects)
	assert.Equal(t, 5*time.Second, c.requestTimeout)
}

func TestNewClient_Options(t *testing.T) {
	c, err := NewClient("nats://robot:4222",
		WithLocalIP("192.168.54.100"),
		WithName("z1-sdk"),
		WithMaxReconnects(3),
		WithReconnectWait(time.Second),
		WithRequestTimeout(2*time.Second),
		WithDrainTimeout(time.Second),
	)
	require.NoError(t, err)

	assert.Equal(t, "192.168.54.100", c.localIP)
	assert.Equal(t, "z1-sdk", c.clientName)
	assert.Equal(t, 3, c.maxReconnects)
	assert.Equal(t, time.Second, c.reconnectWait)
	assert.Equal(t, 2*time.Second, c.requestTimeout)
}

func TestNewClient_InvalidLocalIP(t *testing.T) {
	_, err := NewClient("nats://robot:4222", WithLocalIP("not-an-ip"))
	assert.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestNewClient_InvalidRequestTimeout(t *testing.T) {
	_, err := NewClient("nats://robot:4222", WithRequestTimeout(0))
	assert.Error(t, err)
}

func TestClient_NotConnectedErrors(t *testing.T) {
	c, err := NewClient("nats://robot:4222")
	require.NoError(t, err)

	_, reqErr := c.Request("robot.monitor.state", nil, time.Second)
	assert.ErrorIs(t, reqErr, errors.ErrNotConnected)

	pubErr := c.Publish("robot.motion.low.arm.cmd", []byte("{}"))
	assert.ErrorIs(t, pubErr, errors.ErrNotConnected)

	_, subErr := c.Subscribe("robot.slam.odometry", func([]byte) {})
	assert.ErrorIs(t, subErr, errors.ErrNotConnected)

	_, rttErr := c.RTT()
	assert.ErrorIs(t, rttErr, errors.ErrNotConnected)
}

func TestClient_CloseBeforeConnect(t *testing.T) {
	c, err := NewClient("nats://robot:4222")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, c.Close(ctx))
	require.NoError(t, c.Close(ctx))
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestClient_ConnectAfterClose(t *testing.T) {
	c, err := NewClient("nats://robot:4222")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Close(ctx))

	err = c.Connect(ctx)
	assert.ErrorIs(t, err, errors.ErrShutdown)
}

func TestClient_ConnectFailureIsTransient(t *testing.T) {
	// Nothing listens on this address; the dial fails fast.
	c, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(200*time.Millisecond),
		WithMaxReconnects(0),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestConnectionStatus_String(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "reconnecting", StatusReconnecting.String())
	assert.Equal(t, "unknown", ConnectionStatus(99).String())
}
