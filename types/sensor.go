package types

// Header carries a timestamp and the coordinate frame a message refers to.
type Header struct {
	Stamp   int64  `json:"stamp"` // ns
	FrameID string `json:"frame_id"`
}

// Imu carries inertial measurement readings: attitude quaternion (w, x, y, z),
// angular velocity (rad/s), linear acceleration (m/s^2), and temperature.
type Imu struct {
	Timestamp          int64      `json:"timestamp"` // ns
	Orientation        [4]float64 `json:"orientation"`
	AngularVelocity    [3]float64 `json:"angular_velocity"`
	LinearAcceleration [3]float64 `json:"linear_acceleration"`
	Temperature        float32    `json:"temperature"`
}

// PointField describes one field within packed point cloud data.
type PointField struct {
	Name     string `json:"name"`
	Offset   int32  `json:"offset"`
	Datatype int8   `json:"datatype"`
	Count    int32  `json:"count"`
}

// PointCloud2 is a general packed point cloud.
type PointCloud2 struct {
	Header      Header       `json:"header"`
	Height      int32        `json:"height"`
	Width       int32        `json:"width"`
	Fields      []PointField `json:"fields"`
	IsBigendian bool         `json:"is_bigendian"`
	PointStep   int32        `json:"point_step"`
	RowStep     int32        `json:"row_step"`
	Data        []byte       `json:"data"`
	IsDense     bool         `json:"is_dense"`
}

// Image is a raw image frame. Encoding names the pixel format, e.g. "rgb8",
// "mono8", "bgr8".
type Image struct {
	Header      Header `json:"header"`
	Height      int32  `json:"height"`
	Width       int32  `json:"width"`
	Encoding    string `json:"encoding"`
	IsBigendian bool   `json:"is_bigendian"`
	Step        int32  `json:"step"` // bytes per row
	Data        []byte `json:"data"`
}

// CameraInfo carries camera intrinsics and distortion, published alongside
// image frames.
type CameraInfo struct {
	Header          Header      `json:"header"`
	Height          int32       `json:"height"`
	Width           int32       `json:"width"`
	DistortionModel string      `json:"distortion_model"`
	D               []float64   `json:"D"`
	K               [9]float64  `json:"K"`
	R               [9]float64  `json:"R"`
	P               [12]float64 `json:"P"`
	BinningX        int32       `json:"binning_x"`
	BinningY        int32       `json:"binning_y"`
	ROIXOffset      int32       `json:"roi_x_offset"`
	ROIYOffset      int32       `json:"roi_y_offset"`
	ROIHeight       int32       `json:"roi_height"`
	ROIWidth        int32       `json:"roi_width"`
	ROIDoRectify    bool        `json:"roi_do_rectify"`
}

// BinocularCameraFrame is a stitched stereo frame: the left half of Data is
// the left eye image, the right half the right eye image.
type BinocularCameraFrame struct {
	Header Header `json:"header"`
	Format string `json:"format"`
	Data   []byte `json:"data"`
}
