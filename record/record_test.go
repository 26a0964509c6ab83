package record

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/config"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
)

// fakeSource implements Source in memory.
type fakeSource struct {
	mu         sync.Mutex
	connected  bool
	streams    []jetstream.StreamConfig
	published  []fakeMessage
	handlers   map[string]func(subject string, data []byte)
	publishErr error
	createErr  error
}

type fakeMessage struct {
	subject string
	data    []byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		connected: true,
		handlers:  make(map[string]func(string, []byte)),
	}
}

func (f *fakeSource) SubscribeWithSubject(subject string, handler func(string, []byte)) (link.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[subject] = handler
	return &fakeSubscription{source: f, subject: subject}, nil
}

func (f *fakeSource) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.streams = append(f.streams, cfg)
	return nil, nil
}

func (f *fakeSource) PublishToStream(_ context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, fakeMessage{subject: subject, data: data})
	return nil
}

func (f *fakeSource) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// deliver simulates a live message arriving on a subscribed pattern.
func (f *fakeSource) deliver(pattern, subject string, data []byte) {
	f.mu.Lock()
	handler := f.handlers[pattern]
	f.mu.Unlock()
	if handler != nil {
		handler(subject, data)
	}
}

type fakeSubscription struct {
	source  *fakeSource
	subject string
}

func (s *fakeSubscription) Unsubscribe() error {
	s.source.mu.Lock()
	defer s.source.mu.Unlock()
	delete(s.source.handlers, s.subject)
	return nil
}

func testConfig() config.RecorderConfig {
	return config.RecorderConfig{
		Enabled:  true,
		Stream:   "TELEMETRY",
		Subjects: []string{"robot.sensor.>", "robot.state"},
		MaxAge:   config.Duration(time.Hour),
	}
}

func TestStartCreatesStreamAndSubscribes(t *testing.T) {
	src := newFakeSource()
	r := New(src, testConfig())

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.Running())

	require.Len(t, src.streams, 1)
	assert.Equal(t, "TELEMETRY", src.streams[0].Name)
	assert.Equal(t, []string{"rec.>"}, src.streams[0].Subjects)
	assert.Equal(t, time.Hour, src.streams[0].MaxAge)
	assert.Len(t, src.handlers, 2)
}

func TestCaptureRepublishesUnderRecordPrefix(t *testing.T) {
	src := newFakeSource()
	r := New(src, testConfig())
	require.NoError(t, r.Start(context.Background()))

	src.deliver("robot.sensor.>", "robot.sensor.lidar.imu", []byte(`{"t":1}`))
	src.deliver("robot.state", "robot.state", []byte(`{"faults":[]}`))

	require.Len(t, src.published, 2)
	assert.Equal(t, "rec.robot.sensor.lidar.imu", src.published[0].subject)
	assert.Equal(t, "rec.robot.state", src.published[1].subject)
	assert.Equal(t, uint64(2), r.Recorded())
}

func TestStartIsIdempotent(t *testing.T) {
	src := newFakeSource()
	r := New(src, testConfig())

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Start(context.Background()))
	assert.Len(t, src.streams, 1, "second Start must not recreate the stream")
}

func TestStopUnsubscribesAndAllowsRestart(t *testing.T) {
	src := newFakeSource()
	r := New(src, testConfig())
	require.NoError(t, r.Start(context.Background()))

	r.Stop()
	r.Stop()
	assert.False(t, r.Running())
	assert.Empty(t, src.handlers)

	// Messages after Stop are not recorded.
	src.deliver("robot.state", "robot.state", []byte(`{}`))
	assert.Empty(t, src.published)

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.Running())
}

func TestStartValidatesConfiguration(t *testing.T) {
	src := newFakeSource()

	cfg := testConfig()
	cfg.Stream = ""
	assert.Error(t, New(src, cfg).Start(context.Background()))

	cfg = testConfig()
	cfg.Subjects = nil
	assert.Error(t, New(src, cfg).Start(context.Background()))

	src.connected = false
	assert.Error(t, New(src, testConfig()).Start(context.Background()))
}

func TestStartFailsWhenStreamCreationFails(t *testing.T) {
	src := newFakeSource()
	src.createErr = fmt.Errorf("no jetstream")
	r := New(src, testConfig())

	assert.Error(t, r.Start(context.Background()))
	assert.False(t, r.Running())
}

func TestPublishFailuresAreCountedNotFatal(t *testing.T) {
	src := newFakeSource()
	r := New(src, testConfig())
	require.NoError(t, r.Start(context.Background()))

	src.publishErr = fmt.Errorf("stream full")
	src.deliver("robot.state", "robot.state", []byte(`{}`))
	src.deliver("robot.state", "robot.state", []byte(`{}`))

	assert.Equal(t, uint64(2), r.Dropped())
	assert.Equal(t, uint64(0), r.Recorded())
	assert.True(t, r.Running())
}
