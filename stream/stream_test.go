package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/testutil"
)

type odom struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func newOdomStream(t *testing.T, ml *testutil.MockLink) *Stream[odom] {
	t.Helper()
	s, err := New[odom]("odometry", "robot.slam.odometry", ml)
	require.NoError(t, err)
	return s
}

// collector accumulates delivered messages behind a mutex.
type collector struct {
	mu   sync.Mutex
	msgs []odom
}

func (c *collector) add(m odom) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *collector) last() odom {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msgs[len(c.msgs)-1]
}

func TestStream_SubscribeBeforeOpen(t *testing.T) {
	ml := testutil.NewMockLink()
	s := newOdomStream(t, ml)

	col := &collector{}
	s.Subscribe(col.add)

	require.NoError(t, s.Open())
	defer s.Close()

	ml.InjectJSON("robot.slam.odometry", odom{X: 1, Y: 2})

	require.Eventually(t, func() bool { return col.len() == 1 },
		time.Second, time.Millisecond)
	assert.Equal(t, odom{X: 1, Y: 2}, col.last())
}

func TestStream_ReplaceCallback(t *testing.T) {
	ml := testutil.NewMockLink()
	s := newOdomStream(t, ml)
	require.NoError(t, s.Open())
	defer s.Close()

	first := &collector{}
	second := &collector{}

	s.Subscribe(first.add)
	ml.InjectJSON("robot.slam.odometry", odom{X: 1})
	require.Eventually(t, func() bool { return first.len() == 1 },
		time.Second, time.Millisecond)

	s.Subscribe(second.add)
	ml.InjectJSON("robot.slam.odometry", odom{X: 2})
	require.Eventually(t, func() bool { return second.len() == 1 },
		time.Second, time.Millisecond)

	assert.Equal(t, 1, first.len())
	assert.Equal(t, odom{X: 2}, second.last())
}

func TestStream_UnsubscribeStopsDelivery(t *testing.T) {
	ml := testutil.NewMockLink()
	s := newOdomStream(t, ml)
	require.NoError(t, s.Open())
	defer s.Close()

	col := &collector{}
	s.Subscribe(col.add)

	ml.InjectJSON("robot.slam.odometry", odom{X: 1})
	require.Eventually(t, func() bool { return col.len() == 1 },
		time.Second, time.Millisecond)

	s.Unsubscribe()
	s.Unsubscribe() // idempotent

	ml.InjectJSON("robot.slam.odometry", odom{X: 2})

	// The second message is drained and discarded.
	require.Eventually(t, func() bool { return s.Stats().Reads() == 2 },
		time.Second, time.Millisecond)
	assert.Equal(t, 1, col.len())
}

func TestStream_CallbackPanicIsRecovered(t *testing.T) {
	ml := testutil.NewMockLink()
	s := newOdomStream(t, ml)
	require.NoError(t, s.Open())
	defer s.Close()

	col := &collector{}
	s.Subscribe(func(m odom) {
		if m.X == 1 {
			panic("bad callback")
		}
		col.add(m)
	})

	ml.InjectJSON("robot.slam.odometry", odom{X: 1})
	ml.InjectJSON("robot.slam.odometry", odom{X: 2})

	require.Eventually(t, func() bool { return col.len() == 1 },
		time.Second, time.Millisecond)
	assert.Equal(t, odom{X: 2}, col.last())
}

func TestStream_CloseAndReopen(t *testing.T) {
	ml := testutil.NewMockLink()
	s := newOdomStream(t, ml)

	col := &collector{}
	s.Subscribe(col.add)

	require.NoError(t, s.Open())
	assert.True(t, s.IsOpen())
	require.NoError(t, s.Open()) // no-op

	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent
	assert.False(t, s.IsOpen())
	assert.Equal(t, 0, ml.SubscriberCount("robot.slam.odometry"))

	// Callback registration survives Close.
	require.NoError(t, s.Open())
	defer s.Close()

	ml.InjectJSON("robot.slam.odometry", odom{X: 3})
	require.Eventually(t, func() bool { return col.len() == 1 },
		time.Second, time.Millisecond)
	assert.Equal(t, odom{X: 3}, col.last())
}

func TestStream_UndecodableMessageDropped(t *testing.T) {
	ml := testutil.NewMockLink()
	s := newOdomStream(t, ml)
	require.NoError(t, s.Open())
	defer s.Close()

	col := &collector{}
	s.Subscribe(col.add)

	ml.Inject("robot.slam.odometry", []byte("not json"))
	ml.InjectJSON("robot.slam.odometry", odom{X: 4})

	require.Eventually(t, func() bool { return col.len() == 1 },
		time.Second, time.Millisecond)
	assert.Equal(t, odom{X: 4}, col.last())
}

func TestStream_OpenWithoutLink(t *testing.T) {
	s, err := New[odom]("odometry", "robot.slam.odometry", nil)
	require.NoError(t, err)
	assert.Error(t, s.Open())
}

func TestStream_InvalidCapacity(t *testing.T) {
	ml := testutil.NewMockLink()
	_, err := New[odom]("odometry", "robot.slam.odometry", ml, WithCapacity(-1))
	assert.Error(t, err)
}
