// Package sensor controls the robot's perception hardware. Each sensor is
// powered on and off through an RPC pair, and its telemetry arrives on
// dedicated streams. Opening a sensor attaches its streams; subscribing a
// callback is independent of the sensor's power state.
package sensor

import (
	"log/slog"
	"time"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/stream"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

// Sensor power RPCs can stall on hardware bring-up, so they get a longer
// default than ordinary commands.
const defaultTimeout = 10 * time.Second

// Controller drives the sensor service. All methods are safe for
// concurrent use.
type Controller struct {
	link    link.Link
	log     *slog.Logger
	metrics *metric.Metrics
	timeout time.Duration

	lidarImu        *stream.Stream[types.Imu]
	lidarPointCloud *stream.Stream[types.PointCloud2]
	rgbdColor       *stream.Stream[types.Image]
	rgbdDepth       *stream.Stream[types.Image]
	rgbdCameraInfo  *stream.Stream[types.CameraInfo]
	binocularFrame  *stream.Stream[types.BinocularCameraFrame]
	binocularInfo   *stream.Stream[types.CameraInfo]
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

// New creates a sensor controller on the given link.
func New(l link.Link, opts ...Option) *Controller {
	c := &Controller{
		link:    l,
		log:     slog.Default(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("controller", "sensor")
	return c
}

// Initialize creates the controller's telemetry streams.
func (c *Controller) Initialize() error {
	var err error
	if c.lidarImu, err = stream.New[types.Imu](
		"lidar_imu", link.StreamLidarImu, c.link, stream.WithLogger(c.log)); err != nil {
		return err
	}
	if c.lidarPointCloud, err = stream.New[types.PointCloud2](
		"lidar_pointcloud", link.StreamLidarPointCloud, c.link,
		stream.WithLogger(c.log), stream.WithCapacity(32)); err != nil {
		return err
	}
	if c.rgbdColor, err = stream.New[types.Image](
		"rgbd_color", link.StreamRgbdColorImage, c.link,
		stream.WithLogger(c.log), stream.WithCapacity(16)); err != nil {
		return err
	}
	if c.rgbdDepth, err = stream.New[types.Image](
		"rgbd_depth", link.StreamRgbdDepthImage, c.link,
		stream.WithLogger(c.log), stream.WithCapacity(16)); err != nil {
		return err
	}
	if c.rgbdCameraInfo, err = stream.New[types.CameraInfo](
		"rgbd_camera_info", link.StreamRgbdCameraInfo, c.link,
		stream.WithLogger(c.log)); err != nil {
		return err
	}
	if c.binocularFrame, err = stream.New[types.BinocularCameraFrame](
		"binocular_frame", link.StreamBinocularFrame, c.link,
		stream.WithLogger(c.log), stream.WithCapacity(16)); err != nil {
		return err
	}
	if c.binocularInfo, err = stream.New[types.CameraInfo](
		"binocular_camera_info", link.StreamBinocularInfo, c.link,
		stream.WithLogger(c.log)); err != nil {
		return err
	}
	return nil
}

// Shutdown closes all streams. Idempotent; safe before Initialize.
func (c *Controller) Shutdown() {
	c.closeLidarStreams()
	c.closeRgbdStreams()
	c.closeBinocularStreams()
}

func (c *Controller) initialized() bool {
	return c.lidarImu != nil
}

func (c *Controller) pickTimeout(timeout []time.Duration) time.Duration {
	if len(timeout) > 0 && timeout[0] > 0 {
		return timeout[0]
	}
	return c.timeout
}

func (c *Controller) observe(op string, st types.Status, start time.Time) types.Status {
	if c.metrics != nil {
		c.metrics.ObserveCommand("sensor", op, st.Code, time.Since(start))
	}
	if !st.IsOK() {
		c.log.Warn("command failed", "operation", op, "status", st.String())
	}
	return st
}

type powerCtrl struct {
	Action string `json:"action"`
}

// managedStream is the open/close surface shared by all typed streams.
type managedStream interface {
	Open() error
	Close() error
}

// power performs the open/close RPC and attaches or detaches streams.
func (c *Controller) power(
	op, subject, action string,
	streams []managedStream,
	timeout []time.Duration,
) types.Status {
	start := time.Now()
	if !c.initialized() {
		return c.observe(op, types.InternalErrorf("sensor controller not initialized"), start)
	}

	if action == "close" {
		for _, s := range streams {
			_ = s.Close()
		}
	}
	st := link.Call(c.link, subject, powerCtrl{Action: action}, nil, c.pickTimeout(timeout))
	if action == "open" && st.IsOK() {
		for _, s := range streams {
			if err := s.Open(); err != nil {
				return c.observe(op, types.InternalErrorf("attach stream: %v", err), start)
			}
		}
	}
	return c.observe(op, st, start)
}

func (c *Controller) lidarStreams() []managedStream {
	return []managedStream{c.lidarImu, c.lidarPointCloud}
}

func (c *Controller) rgbdStreams() []managedStream {
	return []managedStream{c.rgbdColor, c.rgbdDepth, c.rgbdCameraInfo}
}

func (c *Controller) binocularStreams() []managedStream {
	return []managedStream{c.binocularFrame, c.binocularInfo}
}

func (c *Controller) closeLidarStreams() {
	if c.lidarImu != nil {
		_ = c.lidarImu.Close()
	}
	if c.lidarPointCloud != nil {
		_ = c.lidarPointCloud.Close()
	}
}

func (c *Controller) closeRgbdStreams() {
	if c.rgbdColor != nil {
		_ = c.rgbdColor.Close()
	}
	if c.rgbdDepth != nil {
		_ = c.rgbdDepth.Close()
	}
	if c.rgbdCameraInfo != nil {
		_ = c.rgbdCameraInfo.Close()
	}
}

func (c *Controller) closeBinocularStreams() {
	if c.binocularFrame != nil {
		_ = c.binocularFrame.Close()
	}
	if c.binocularInfo != nil {
		_ = c.binocularInfo.Close()
	}
}

// OpenLidar powers on the lidar and attaches its IMU and point cloud
// streams.
func (c *Controller) OpenLidar(timeout ...time.Duration) types.Status {
	return c.power("OpenLidar", link.SubjectLidarCtrl, "open", c.lidarStreams(), timeout)
}

// CloseLidar detaches the lidar streams and powers the lidar off.
func (c *Controller) CloseLidar(timeout ...time.Duration) types.Status {
	return c.power("CloseLidar", link.SubjectLidarCtrl, "close", c.lidarStreams(), timeout)
}

// OpenHeadRgbdCamera powers on the head RGBD camera and attaches its
// color, depth and camera info streams.
func (c *Controller) OpenHeadRgbdCamera(timeout ...time.Duration) types.Status {
	return c.power("OpenHeadRgbdCamera", link.SubjectRgbdCtrl, "open", c.rgbdStreams(), timeout)
}

// CloseHeadRgbdCamera detaches the RGBD streams and powers the camera off.
func (c *Controller) CloseHeadRgbdCamera(timeout ...time.Duration) types.Status {
	return c.power("CloseHeadRgbdCamera", link.SubjectRgbdCtrl, "close", c.rgbdStreams(), timeout)
}

// OpenBinocularCamera powers on the binocular camera and attaches its
// frame and camera info streams.
func (c *Controller) OpenBinocularCamera(timeout ...time.Duration) types.Status {
	return c.power("OpenBinocularCamera", link.SubjectBinocularCtrl, "open",
		c.binocularStreams(), timeout)
}

// CloseBinocularCamera detaches the binocular streams and powers the
// camera off.
func (c *Controller) CloseBinocularCamera(timeout ...time.Duration) types.Status {
	return c.power("CloseBinocularCamera", link.SubjectBinocularCtrl, "close",
		c.binocularStreams(), timeout)
}

// SubscribeLidarImu installs the lidar IMU callback, replacing any
// previous one.
func (c *Controller) SubscribeLidarImu(cb func(types.Imu)) {
	if c.lidarImu != nil {
		c.lidarImu.Subscribe(cb)
	}
}

// UnsubscribeLidarImu removes the lidar IMU callback. Idempotent.
func (c *Controller) UnsubscribeLidarImu() {
	if c.lidarImu != nil {
		c.lidarImu.Unsubscribe()
	}
}

// SubscribeLidarPointCloud installs the lidar point cloud callback,
// replacing any previous one.
func (c *Controller) SubscribeLidarPointCloud(cb func(types.PointCloud2)) {
	if c.lidarPointCloud != nil {
		c.lidarPointCloud.Subscribe(cb)
	}
}

// UnsubscribeLidarPointCloud removes the point cloud callback. Idempotent.
func (c *Controller) UnsubscribeLidarPointCloud() {
	if c.lidarPointCloud != nil {
		c.lidarPointCloud.Unsubscribe()
	}
}

// SubscribeRgbdColorImage installs the RGBD color image callback.
func (c *Controller) SubscribeRgbdColorImage(cb func(types.Image)) {
	if c.rgbdColor != nil {
		c.rgbdColor.Subscribe(cb)
	}
}

// UnsubscribeRgbdColorImage removes the color image callback. Idempotent.
func (c *Controller) UnsubscribeRgbdColorImage() {
	if c.rgbdColor != nil {
		c.rgbdColor.Unsubscribe()
	}
}

// SubscribeRgbdDepthImage installs the RGBD depth image callback.
func (c *Controller) SubscribeRgbdDepthImage(cb func(types.Image)) {
	if c.rgbdDepth != nil {
		c.rgbdDepth.Subscribe(cb)
	}
}

// UnsubscribeRgbdDepthImage removes the depth image callback. Idempotent.
func (c *Controller) UnsubscribeRgbdDepthImage() {
	if c.rgbdDepth != nil {
		c.rgbdDepth.Unsubscribe()
	}
}

// SubscribeRgbdCameraInfo installs the RGBD camera info callback.
func (c *Controller) SubscribeRgbdCameraInfo(cb func(types.CameraInfo)) {
	if c.rgbdCameraInfo != nil {
		c.rgbdCameraInfo.Subscribe(cb)
	}
}

// UnsubscribeRgbdCameraInfo removes the camera info callback. Idempotent.
func (c *Controller) UnsubscribeRgbdCameraInfo() {
	if c.rgbdCameraInfo != nil {
		c.rgbdCameraInfo.Unsubscribe()
	}
}

// SubscribeBinocularImage installs the binocular frame callback.
func (c *Controller) SubscribeBinocularImage(cb func(types.BinocularCameraFrame)) {
	if c.binocularFrame != nil {
		c.binocularFrame.Subscribe(cb)
	}
}

// UnsubscribeBinocularImage removes the binocular frame callback.
// Idempotent.
func (c *Controller) UnsubscribeBinocularImage() {
	if c.binocularFrame != nil {
		c.binocularFrame.Unsubscribe()
	}
}

// SubscribeBinocularCameraInfo installs the binocular camera info callback.
func (c *Controller) SubscribeBinocularCameraInfo(cb func(types.CameraInfo)) {
	if c.binocularInfo != nil {
		c.binocularInfo.Subscribe(cb)
	}
}

// UnsubscribeBinocularCameraInfo removes the binocular camera info
// callback. Idempotent.
func (c *Controller) UnsubscribeBinocularCameraInfo() {
	if c.binocularInfo != nil {
		c.binocularInfo.Unsubscribe()
	}
}
