// Package slamnav controls the robot's SLAM and navigation service:
// mapping, localization, map management, navigation tasks and odometry.
//
// The controller keeps a best-effort cache of the current SlamMode and
// NavMode. A transition that times out leaves the remote mode unknown, so
// the cache is marked stale and resynchronized from the robot on the next
// read. All mode transitions are serialized under one mutex.
package slamnav

import (
	"log/slog"
	"sync"
	"time"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/stream"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

const defaultTimeout = 5 * time.Second

// Controller drives the SLAM and navigation service. All methods are safe
// for concurrent use.
type Controller struct {
	link    link.Link
	log     *slog.Logger
	metrics *metric.Metrics
	timeout time.Duration

	// mu serializes mode transitions and guards the cached modes. No two
	// concurrent transitions may interleave.
	mu        sync.Mutex
	slamMode  types.SlamMode
	slamStale bool
	navMode   types.NavMode
	navStale  bool

	odometry *stream.Stream[types.Odometry]
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

// New creates a SLAM/navigation controller on the given link.
func New(l link.Link, opts ...Option) *Controller {
	c := &Controller{
		link:    l,
		log:     slog.Default(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("controller", "slamnav")
	return c
}

// Initialize creates the odometry stream.
func (c *Controller) Initialize() error {
	var err error
	c.odometry, err = stream.New[types.Odometry](
		"odometry", link.StreamOdometry, c.link, stream.WithLogger(c.log))
	return err
}

// Shutdown closes the odometry stream. Idempotent; safe before Initialize.
func (c *Controller) Shutdown() {
	if c.odometry != nil {
		_ = c.odometry.Close()
	}
}

func (c *Controller) pickTimeout(timeout []time.Duration) time.Duration {
	if len(timeout) > 0 && timeout[0] > 0 {
		return timeout[0]
	}
	return c.timeout
}

func (c *Controller) observe(op string, st types.Status, start time.Time) types.Status {
	if c.metrics != nil {
		c.metrics.ObserveCommand("slamnav", op, st.Code, time.Since(start))
	}
	if !st.IsOK() {
		c.log.Warn("command failed", "operation", op, "status", st.String())
	}
	return st
}

type slamModePayload struct {
	Mode    types.SlamMode `json:"mode"`
	MapPath string         `json:"map_path,omitempty"`
}

// ActivateSlamMode transitions the SLAM service to the given mode.
// LOCALIZATION requires the path of the map to localize against. A failed
// transition leaves the cached mode unchanged; a timed-out one marks it
// stale since the remote outcome is unknown.
func (c *Controller) ActivateSlamMode(mode types.SlamMode, mapPath string, timeout ...time.Duration) types.Status {
	start := time.Now()

	if mode < types.SlamModeIdle || mode > types.SlamModeLocalization {
		return c.observe("ActivateSlamMode",
			types.InternalErrorf("invalid slam mode %d", mode), start)
	}
	if mode == types.SlamModeLocalization && mapPath == "" {
		return c.observe("ActivateSlamMode",
			types.InternalErrorf("localization mode requires a map path"), start)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st := link.Call(c.link, link.SubjectSlamModeSet,
		slamModePayload{Mode: mode, MapPath: mapPath}, nil, c.pickTimeout(timeout))
	switch st.Code {
	case types.CodeOK:
		c.slamMode = mode
		c.slamStale = false
	case types.CodeTimeout:
		c.slamStale = true
	}
	return c.observe("ActivateSlamMode", st, start)
}

// CurrentSlamMode returns the cached SLAM mode, resynchronizing from the
// robot when the cache is stale.
func (c *Controller) CurrentSlamMode(timeout ...time.Duration) (types.SlamMode, types.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSlamModeLocked(timeout)
}

func (c *Controller) currentSlamModeLocked(timeout []time.Duration) (types.SlamMode, types.Status) {
	if !c.slamStale {
		return c.slamMode, types.OK()
	}

	start := time.Now()
	var out slamModePayload
	st := link.Call(c.link, link.SubjectSlamModeGet, nil, &out, c.pickTimeout(timeout))
	if st.IsOK() {
		c.slamMode = out.Mode
		c.slamStale = false
	}
	return c.slamMode, c.observe("CurrentSlamMode", st, start)
}

// requireMapping resolves the current mode (resyncing a stale cache) and
// rejects the operation locally when the service is not in MAPPING.
func (c *Controller) requireMapping(op string, start time.Time, timeout []time.Duration) types.Status {
	mode, st := c.currentSlamModeLocked(timeout)
	if !st.IsOK() {
		return c.observe(op, st, start)
	}
	if mode != types.SlamModeMapping {
		return c.observe(op,
			types.InternalErrorf("%s requires mapping mode, current mode is %s", op, mode), start)
	}
	return types.OK()
}

// StartMapping begins recording a new map. Valid only in MAPPING mode.
func (c *Controller) StartMapping(timeout ...time.Duration) types.Status {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if st := c.requireMapping("StartMapping", start, timeout); !st.IsOK() {
		return st
	}
	st := link.Call(c.link, link.SubjectMappingStart, nil, nil, c.pickTimeout(timeout))
	return c.observe("StartMapping", st, start)
}

// CancelMapping abandons the in-progress map. Valid only in MAPPING mode.
func (c *Controller) CancelMapping(timeout ...time.Duration) types.Status {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if st := c.requireMapping("CancelMapping", start, timeout); !st.IsOK() {
		return st
	}
	st := link.Call(c.link, link.SubjectMappingCancel, nil, nil, c.pickTimeout(timeout))
	return c.observe("CancelMapping", st, start)
}

type mapNamePayload struct {
	MapName string `json:"map_name"`
}

// SaveMap persists the in-progress map under the given name. The service
// expects MAPPING mode; outside it the call is still forwarded (the robot
// decides) but a warning is logged.
func (c *Controller) SaveMap(mapName string, timeout ...time.Duration) types.Status {
	start := time.Now()
	if mapName == "" {
		return c.observe("SaveMap", types.InternalErrorf("map name must not be empty"), start)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if mode, st := c.currentSlamModeLocked(timeout); st.IsOK() && mode != types.SlamModeMapping {
		c.log.Warn("saving map outside mapping mode", "mode", mode.String())
	}
	st := link.Call(c.link, link.SubjectMapSave,
		mapNamePayload{MapName: mapName}, nil, c.pickTimeout(timeout))
	return c.observe("SaveMap", st, start)
}

// LoadMap loads a saved map and makes it current.
func (c *Controller) LoadMap(mapName string, timeout ...time.Duration) types.Status {
	start := time.Now()
	if mapName == "" {
		return c.observe("LoadMap", types.InternalErrorf("map name must not be empty"), start)
	}
	st := link.Call(c.link, link.SubjectMapLoad,
		mapNamePayload{MapName: mapName}, nil, c.pickTimeout(timeout))
	return c.observe("LoadMap", st, start)
}

// DeleteMap removes a saved map.
func (c *Controller) DeleteMap(mapName string, timeout ...time.Duration) types.Status {
	start := time.Now()
	if mapName == "" {
		return c.observe("DeleteMap", types.InternalErrorf("map name must not be empty"), start)
	}
	st := link.Call(c.link, link.SubjectMapDelete,
		mapNamePayload{MapName: mapName}, nil, c.pickTimeout(timeout))
	return c.observe("DeleteMap", st, start)
}

type mapPathReply struct {
	MapPath []string `json:"map_path"`
}

// GetMapPath resolves the on-robot storage paths of a saved map.
func (c *Controller) GetMapPath(mapName string, timeout ...time.Duration) ([]string, types.Status) {
	start := time.Now()
	if mapName == "" {
		return nil, c.observe("GetMapPath",
			types.InternalErrorf("map name must not be empty"), start)
	}
	var out mapPathReply
	st := link.Call(c.link, link.SubjectMapGetPath,
		mapNamePayload{MapName: mapName}, &out, c.pickTimeout(timeout))
	return out.MapPath, c.observe("GetMapPath", st, start)
}

// GetAllMapInfo returns the robot's map inventory including rasterized map
// images.
func (c *Controller) GetAllMapInfo(timeout ...time.Duration) (types.AllMapInfo, types.Status) {
	start := time.Now()
	var out types.AllMapInfo
	st := link.Call(c.link, link.SubjectMapGetAll, nil, &out, c.pickTimeout(timeout))
	return out, c.observe("GetAllMapInfo", st, start)
}

// InitPose seeds the localizer with a pose prior. Only meaningful in
// LOCALIZATION mode; outside it the call is forwarded with a warning.
func (c *Controller) InitPose(pose types.Pose3DEuler, timeout ...time.Duration) types.Status {
	start := time.Now()

	c.mu.Lock()
	if mode, st := c.currentSlamModeLocked(timeout); st.IsOK() && mode != types.SlamModeLocalization {
		c.log.Warn("setting pose prior outside localization mode", "mode", mode.String())
	}
	c.mu.Unlock()

	st := link.Call(c.link, link.SubjectInitPose, pose, nil, c.pickTimeout(timeout))
	return c.observe("InitPose", st, start)
}

// GetCurrentLocalizationInfo reports localizer convergence and the current
// pose. IsLocalization is false until the localizer has converged.
func (c *Controller) GetCurrentLocalizationInfo(timeout ...time.Duration) (types.LocalizationInfo, types.Status) {
	start := time.Now()
	var out types.LocalizationInfo
	st := link.Call(c.link, link.SubjectLocalization, nil, &out, c.pickTimeout(timeout))
	return out, c.observe("GetCurrentLocalizationInfo", st, start)
}

type navModePayload struct {
	Mode    types.NavMode `json:"mode"`
	MapPath string        `json:"map_path,omitempty"`
}

// ActivateNavMode transitions the navigation service. GRID_MAP requires
// the path of the map to navigate on. Cache semantics match
// ActivateSlamMode.
func (c *Controller) ActivateNavMode(mode types.NavMode, mapPath string, timeout ...time.Duration) types.Status {
	start := time.Now()

	if mode < types.NavModeIdle || mode > types.NavModeGridMap {
		return c.observe("ActivateNavMode",
			types.InternalErrorf("invalid nav mode %d", mode), start)
	}
	if mode == types.NavModeGridMap && mapPath == "" {
		return c.observe("ActivateNavMode",
			types.InternalErrorf("grid map mode requires a map path"), start)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st := link.Call(c.link, link.SubjectNavModeSet,
		navModePayload{Mode: mode, MapPath: mapPath}, nil, c.pickTimeout(timeout))
	switch st.Code {
	case types.CodeOK:
		c.navMode = mode
		c.navStale = false
	case types.CodeTimeout:
		c.navStale = true
	}
	return c.observe("ActivateNavMode", st, start)
}

// CurrentNavMode returns the cached navigation mode, resynchronizing from
// the robot when the cache is stale.
func (c *Controller) CurrentNavMode(timeout ...time.Duration) (types.NavMode, types.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.navStale {
		return c.navMode, types.OK()
	}

	start := time.Now()
	var out navModePayload
	st := link.Call(c.link, link.SubjectNavModeGet, nil, &out, c.pickTimeout(timeout))
	if st.IsOK() {
		c.navMode = out.Mode
		c.navStale = false
	}
	return c.navMode, c.observe("CurrentNavMode", st, start)
}

// SetNavTarget starts a navigation task toward the goal. A task already
// RUNNING is replaced by the new goal. When goal.ID is zero a unique ID is
// filled in so GetNavTaskStatus can be matched to this goal.
func (c *Controller) SetNavTarget(goal types.NavTarget, timeout ...time.Duration) types.Status {
	start := time.Now()
	if goal.ID == 0 {
		goal.ID = time.Now().UnixNano()
	}
	st := link.Call(c.link, link.SubjectNavTargetSet, goal, nil, c.pickTimeout(timeout))
	return c.observe("SetNavTarget", st, start)
}

// PauseNavTask pauses the RUNNING navigation task.
func (c *Controller) PauseNavTask(timeout ...time.Duration) types.Status {
	start := time.Now()
	st := link.Call(c.link, link.SubjectNavTaskPause, nil, nil, c.pickTimeout(timeout))
	return c.observe("PauseNavTask", st, start)
}

// ResumeNavTask resumes a PAUSED navigation task.
func (c *Controller) ResumeNavTask(timeout ...time.Duration) types.Status {
	start := time.Now()
	st := link.Call(c.link, link.SubjectNavTaskResume, nil, nil, c.pickTimeout(timeout))
	return c.observe("ResumeNavTask", st, start)
}

// CancelNavTask cancels the RUNNING or PAUSED navigation task.
func (c *Controller) CancelNavTask(timeout ...time.Duration) types.Status {
	start := time.Now()
	st := link.Call(c.link, link.SubjectNavTaskCancel, nil, nil, c.pickTimeout(timeout))
	return c.observe("CancelNavTask", st, start)
}

// GetNavTaskStatus polls the navigation task state. Task completion is
// only observable this way; there is no push notification.
func (c *Controller) GetNavTaskStatus(timeout ...time.Duration) (types.NavStatus, types.Status) {
	start := time.Now()
	var out types.NavStatus
	st := link.Call(c.link, link.SubjectNavTaskStatus, nil, &out, c.pickTimeout(timeout))
	return out, c.observe("GetNavTaskStatus", st, start)
}

type streamCtrl struct {
	Action string `json:"action"`
}

// OpenOdometryStream asks the robot to publish fused odometry and attaches
// the odometry stream.
func (c *Controller) OpenOdometryStream(timeout ...time.Duration) types.Status {
	start := time.Now()
	if c.odometry == nil {
		return c.observe("OpenOdometryStream",
			types.InternalErrorf("slamnav controller not initialized"), start)
	}
	st := link.Call(c.link, link.SubjectOdometryCtrl,
		streamCtrl{Action: "open"}, nil, c.pickTimeout(timeout))
	if !st.IsOK() {
		return c.observe("OpenOdometryStream", st, start)
	}
	if err := c.odometry.Open(); err != nil {
		return c.observe("OpenOdometryStream",
			types.InternalErrorf("attach odometry stream: %v", err), start)
	}
	return c.observe("OpenOdometryStream", st, start)
}

// CloseOdometryStream detaches the odometry stream and asks the robot to
// stop publishing odometry.
func (c *Controller) CloseOdometryStream(timeout ...time.Duration) types.Status {
	start := time.Now()
	if c.odometry == nil {
		return c.observe("CloseOdometryStream",
			types.InternalErrorf("slamnav controller not initialized"), start)
	}
	_ = c.odometry.Close()
	st := link.Call(c.link, link.SubjectOdometryCtrl,
		streamCtrl{Action: "close"}, nil, c.pickTimeout(timeout))
	return c.observe("CloseOdometryStream", st, start)
}

// SubscribeOdometry installs the odometry callback, replacing any previous
// one. Delivery requires an open odometry stream.
func (c *Controller) SubscribeOdometry(cb func(types.Odometry)) {
	if c.odometry != nil {
		c.odometry.Subscribe(cb)
	}
}

// UnsubscribeOdometry removes the odometry callback. Idempotent.
func (c *Controller) UnsubscribeOdometry() {
	if c.odometry != nil {
		c.odometry.Unsubscribe()
	}
}

// GetPointCloudMap fetches the current point cloud map. Large maps take a
// while to transfer; pass a longer timeout for big environments.
func (c *Controller) GetPointCloudMap(timeout ...time.Duration) (types.PointCloud2, types.Status) {
	start := time.Now()
	var out types.PointCloud2
	st := link.Call(c.link, link.SubjectPointCloudMap, nil, &out, c.pickTimeout(timeout))
	return out, c.observe("GetPointCloudMap", st, start)
}
