package types

// SlamMode is the SLAM service's coarse operational mode. Exactly one mode is
// active at a time; ActivateSlamMode transitions between them.
type SlamMode int8

// SLAM modes.
const (
	SlamModeIdle         SlamMode = 0
	SlamModeMapping      SlamMode = 1
	SlamModeLocalization SlamMode = 2
)

// String returns the string representation of SlamMode.
func (m SlamMode) String() string {
	switch m {
	case SlamModeIdle:
		return "idle"
	case SlamModeMapping:
		return "mapping"
	case SlamModeLocalization:
		return "localization"
	default:
		return "unknown"
	}
}

// NavMode is the navigation service's mode, an axis independent of SlamMode.
// GRID_MAP is only meaningful with a loaded, localized map.
type NavMode int8

// Navigation modes.
const (
	NavModeIdle    NavMode = 0
	NavModeGridMap NavMode = 1
)

// String returns the string representation of NavMode.
func (m NavMode) String() string {
	switch m {
	case NavModeIdle:
		return "idle"
	case NavModeGridMap:
		return "grid_map"
	default:
		return "unknown"
	}
}

// Pose3DEuler is a 3D pose with Euler-angle orientation: position {x, y, z}
// in meters and orientation {roll, pitch, yaw} in radians.
type Pose3DEuler struct {
	Position    [3]float64 `json:"position"`
	Orientation [3]float64 `json:"orientation"`
}

// LocalizationInfo reports the localizer's convergence and current pose.
// IsLocalization is false until the localizer has converged.
type LocalizationInfo struct {
	IsLocalization bool        `json:"is_localization"`
	Pose           Pose3DEuler `json:"pose"`
}

// Odometry carries fused odometry: pose (quaternion orientation) plus linear
// and angular velocity.
type Odometry struct {
	Timestamp       int64      `json:"timestamp"` // ns
	Position        [3]float64 `json:"position"`
	Orientation     [4]float64 `json:"orientation"` // w, x, y, z
	LinearVelocity  [3]float64 `json:"linear_velocity"`
	AngularVelocity [3]float64 `json:"angular_velocity"`
}

// NavTarget is one navigation goal: an ID for tracking, the reference frame,
// and the goal pose.
type NavTarget struct {
	ID      int64       `json:"id"`
	FrameID string      `json:"frame_id"`
	Goal    Pose3DEuler `json:"goal"`
}

// NavStatusType enumerates navigation task states.
type NavStatusType int8

// Navigation task states. END_SUCCESS, END_FAILED and CANCEL are terminal.
const (
	NavStatusNone       NavStatusType = 0
	NavStatusRunning    NavStatusType = 1
	NavStatusEndSuccess NavStatusType = 2
	NavStatusEndFailed  NavStatusType = 3
	NavStatusPause      NavStatusType = 4
	NavStatusContinue   NavStatusType = 5
	NavStatusCancel     NavStatusType = 6
)

// String returns the string representation of NavStatusType.
func (t NavStatusType) String() string {
	switch t {
	case NavStatusNone:
		return "NONE"
	case NavStatusRunning:
		return "RUNNING"
	case NavStatusEndSuccess:
		return "END_SUCCESS"
	case NavStatusEndFailed:
		return "END_FAILED"
	case NavStatusPause:
		return "PAUSE"
	case NavStatusContinue:
		return "CONTINUE"
	case NavStatusCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state ends the navigation task's lifecycle.
func (t NavStatusType) Terminal() bool {
	return t == NavStatusEndSuccess || t == NavStatusEndFailed || t == NavStatusCancel
}

// NavStatus is a navigation task status snapshot, obtained by polling.
type NavStatus struct {
	ID        int64         `json:"id"`
	Status    NavStatusType `json:"status"`
	ErrorCode int           `json:"error_code"`
	ErrorDesc string        `json:"error_desc"`
}

// MapImageData is a rasterized occupancy map image. Image holds one byte per
// pixel, row-major, Width*Height bytes, gray values in [0, MaxGrayValue].
type MapImageData struct {
	Width        uint32 `json:"width"`
	Height       uint32 `json:"height"`
	MaxGrayValue uint32 `json:"max_gray_value"`
	Type         string `json:"type"`
	Image        []byte `json:"image"`
}

// MapMetaData ties a map image to world coordinates: origin pose and
// resolution in meters per pixel.
type MapMetaData struct {
	Resolution   float64      `json:"resolution"`
	Origin       Pose3DEuler  `json:"origin"`
	MapImageData MapImageData `json:"map_image_data"`
}

// MapInfo describes one saved map.
type MapInfo struct {
	MapName     string      `json:"map_name"`
	MapMetaData MapMetaData `json:"map_meta_data"`
}

// AllMapInfo is the full map inventory plus the currently loaded map name.
type AllMapInfo struct {
	CurrentMapName string    `json:"current_map_name"`
	MapInfos       []MapInfo `json:"map_infos"`
}
