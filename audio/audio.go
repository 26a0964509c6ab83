// Package audio controls the robot's speech and microphone subsystem:
// TTS playback, volume, raw audio streams and voice wake-up events.
package audio

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/stream"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

const defaultTimeout = 5 * time.Second

// TTS synthesis can take a while before the service acknowledges, so Play
// gets a longer default than the other audio commands.
const playTimeout = 10 * time.Second

// Controller drives the audio service. Create one with New, Initialize it,
// and Shutdown when done. All methods are safe for concurrent use.
type Controller struct {
	link    link.Link
	log     *slog.Logger
	metrics *metric.Metrics
	timeout time.Duration

	originStream *stream.Stream[types.AudioStream]
	bfStream     *stream.Stream[types.AudioStream]
	wakeupStream *stream.Stream[types.WakeupStatus]
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithTimeout sets the default command timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics exports command and stream metrics through the registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Controller) {
		if registry != nil {
			c.metrics = registry.CoreMetrics()
		}
	}
}

// New creates an audio controller on the given link.
func New(l link.Link, opts ...Option) *Controller {
	c := &Controller{
		link:    l,
		log:     slog.Default(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("controller", "audio")
	return c
}

// Initialize creates the controller's telemetry streams. It does not talk
// to the robot.
func (c *Controller) Initialize() error {
	var err error
	c.originStream, err = stream.New[types.AudioStream](
		"audio_origin", link.StreamAudioOrigin, c.link, stream.WithLogger(c.log))
	if err != nil {
		return err
	}
	c.bfStream, err = stream.New[types.AudioStream](
		"audio_bf", link.StreamAudioBF, c.link, stream.WithLogger(c.log))
	if err != nil {
		return err
	}
	c.wakeupStream, err = stream.New[types.WakeupStatus](
		"wakeup_status", link.StreamWakeupStatus, c.link, stream.WithLogger(c.log))
	if err != nil {
		return err
	}
	return nil
}

// Shutdown closes all streams. Idempotent; safe before Initialize.
func (c *Controller) Shutdown() {
	if c.originStream != nil {
		_ = c.originStream.Close()
	}
	if c.bfStream != nil {
		_ = c.bfStream.Close()
	}
	if c.wakeupStream != nil {
		_ = c.wakeupStream.Close()
	}
}

func (c *Controller) initialized() bool {
	return c.originStream != nil && c.bfStream != nil && c.wakeupStream != nil
}

func (c *Controller) pickTimeout(def time.Duration, timeout []time.Duration) time.Duration {
	if len(timeout) > 0 && timeout[0] > 0 {
		return timeout[0]
	}
	return def
}

func (c *Controller) observe(op string, st types.Status, start time.Time) types.Status {
	if c.metrics != nil {
		c.metrics.ObserveCommand("audio", op, st.Code, time.Since(start))
	}
	if !st.IsOK() {
		c.log.Warn("command failed", "operation", op, "status", st.String())
	}
	return st
}

// Play requests TTS playback. When cmd.ID is empty a unique ID is filled in
// so later status reports can be matched to this request.
func (c *Controller) Play(cmd types.TtsCommand, timeout ...time.Duration) types.Status {
	start := time.Now()
	if cmd.Content == "" {
		return c.observe("Play",
			types.InternalErrorf("tts content must not be empty"), start)
	}
	if cmd.Priority < types.TtsPriorityHigh || cmd.Priority > types.TtsPriorityLow {
		return c.observe("Play",
			types.InternalErrorf("invalid tts priority %d", cmd.Priority), start)
	}
	if cmd.Mode < types.TtsModeClearTop || cmd.Mode > types.TtsModeClearBuffer {
		return c.observe("Play",
			types.InternalErrorf("invalid tts mode %d", cmd.Mode), start)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	st := link.Call(c.link, link.SubjectAudioPlay, cmd, nil, c.pickTimeout(playTimeout, timeout))
	return c.observe("Play", st, start)
}

// Stop interrupts current TTS playback and clears the queue.
func (c *Controller) Stop(timeout ...time.Duration) types.Status {
	start := time.Now()
	st := link.Call(c.link, link.SubjectAudioStop, nil, nil, c.pickTimeout(c.timeout, timeout))
	return c.observe("Stop", st, start)
}

type volumePayload struct {
	Volume int `json:"volume"`
}

// SetVolume sets the speaker volume, 0 to 100.
func (c *Controller) SetVolume(volume int, timeout ...time.Duration) types.Status {
	start := time.Now()
	if volume < 0 || volume > 100 {
		return c.observe("SetVolume",
			types.InternalErrorf("volume must be in [0,100], got %d", volume), start)
	}
	st := link.Call(c.link, link.SubjectAudioSetVolume,
		volumePayload{Volume: volume}, nil, c.pickTimeout(c.timeout, timeout))
	return c.observe("SetVolume", st, start)
}

// GetVolume reads the current speaker volume.
func (c *Controller) GetVolume(timeout ...time.Duration) (int, types.Status) {
	start := time.Now()
	var out volumePayload
	st := link.Call(c.link, link.SubjectAudioGetVolume, nil, &out, c.pickTimeout(c.timeout, timeout))
	return out.Volume, c.observe("GetVolume", st, start)
}

type streamCtrl struct {
	Action string `json:"action"`
}

// OpenAudioStream asks the robot to start publishing raw microphone audio
// and attaches the origin and beamformed streams.
func (c *Controller) OpenAudioStream(timeout ...time.Duration) types.Status {
	start := time.Now()
	if !c.initialized() {
		return c.observe("OpenAudioStream",
			types.InternalErrorf("audio controller not initialized"), start)
	}
	st := link.Call(c.link, link.SubjectAudioStreamCtrl,
		streamCtrl{Action: "open"}, nil, c.pickTimeout(c.timeout, timeout))
	if !st.IsOK() {
		return c.observe("OpenAudioStream", st, start)
	}
	if err := c.originStream.Open(); err != nil {
		return c.observe("OpenAudioStream",
			types.InternalErrorf("attach origin audio stream: %v", err), start)
	}
	if err := c.bfStream.Open(); err != nil {
		return c.observe("OpenAudioStream",
			types.InternalErrorf("attach bf audio stream: %v", err), start)
	}
	return c.observe("OpenAudioStream", st, start)
}

// CloseAudioStream detaches the audio streams and asks the robot to stop
// publishing raw audio.
func (c *Controller) CloseAudioStream(timeout ...time.Duration) types.Status {
	start := time.Now()
	if !c.initialized() {
		return c.observe("CloseAudioStream",
			types.InternalErrorf("audio controller not initialized"), start)
	}
	_ = c.originStream.Close()
	_ = c.bfStream.Close()
	st := link.Call(c.link, link.SubjectAudioStreamCtrl,
		streamCtrl{Action: "close"}, nil, c.pickTimeout(c.timeout, timeout))
	return c.observe("CloseAudioStream", st, start)
}

// SubscribeOriginAudio installs the callback for raw microphone audio,
// replacing any previous one. Delivery requires an open audio stream.
func (c *Controller) SubscribeOriginAudio(cb func(types.AudioStream)) {
	if c.originStream != nil {
		c.originStream.Subscribe(cb)
	}
}

// UnsubscribeOriginAudio removes the raw audio callback. Idempotent.
func (c *Controller) UnsubscribeOriginAudio() {
	if c.originStream != nil {
		c.originStream.Unsubscribe()
	}
}

// SubscribeBFAudio installs the callback for beamformed audio, replacing
// any previous one.
func (c *Controller) SubscribeBFAudio(cb func(types.AudioStream)) {
	if c.bfStream != nil {
		c.bfStream.Subscribe(cb)
	}
}

// UnsubscribeBFAudio removes the beamformed audio callback. Idempotent.
func (c *Controller) UnsubscribeBFAudio() {
	if c.bfStream != nil {
		c.bfStream.Unsubscribe()
	}
}

// OpenWakeupStatusStream asks the robot to publish wake-up events and
// attaches the wake-up stream.
func (c *Controller) OpenWakeupStatusStream(timeout ...time.Duration) types.Status {
	start := time.Now()
	if !c.initialized() {
		return c.observe("OpenWakeupStatusStream",
			types.InternalErrorf("audio controller not initialized"), start)
	}
	st := link.Call(c.link, link.SubjectWakeupCtrl,
		streamCtrl{Action: "open"}, nil, c.pickTimeout(c.timeout, timeout))
	if !st.IsOK() {
		return c.observe("OpenWakeupStatusStream", st, start)
	}
	if err := c.wakeupStream.Open(); err != nil {
		return c.observe("OpenWakeupStatusStream",
			types.InternalErrorf("attach wakeup stream: %v", err), start)
	}
	return c.observe("OpenWakeupStatusStream", st, start)
}

// CloseWakeupStatusStream detaches the wake-up stream and asks the robot
// to stop publishing wake-up events.
func (c *Controller) CloseWakeupStatusStream(timeout ...time.Duration) types.Status {
	start := time.Now()
	if !c.initialized() {
		return c.observe("CloseWakeupStatusStream",
			types.InternalErrorf("audio controller not initialized"), start)
	}
	_ = c.wakeupStream.Close()
	st := link.Call(c.link, link.SubjectWakeupCtrl,
		streamCtrl{Action: "close"}, nil, c.pickTimeout(c.timeout, timeout))
	return c.observe("CloseWakeupStatusStream", st, start)
}

// SubscribeWakeupStatus installs the callback for voice wake-up events,
// replacing any previous one.
func (c *Controller) SubscribeWakeupStatus(cb func(types.WakeupStatus)) {
	if c.wakeupStream != nil {
		c.wakeupStream.Subscribe(cb)
	}
}

// UnsubscribeWakeupStatus removes the wake-up callback. Idempotent.
func (c *Controller) UnsubscribeWakeupStatus() {
	if c.wakeupStream != nil {
		c.wakeupStream.Unsubscribe()
	}
}
