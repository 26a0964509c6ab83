package link

// Subject space for the robot services. Everything lives under "robot.>".
// Subjects named Subject* are request/response endpoints; subjects named
// Stream* carry continuous telemetry.
const (
	// Audio service.
	SubjectAudioPlay       = "robot.audio.tts.play"
	SubjectAudioStop       = "robot.audio.tts.stop"
	SubjectAudioSetVolume  = "robot.audio.volume.set"
	SubjectAudioGetVolume  = "robot.audio.volume.get"
	SubjectAudioStreamCtrl = "robot.audio.stream.ctrl"
	SubjectWakeupCtrl      = "robot.audio.wakeup.ctrl"

	StreamAudioOrigin  = "robot.audio.stream.origin"
	StreamAudioBF      = "robot.audio.stream.bf"
	StreamWakeupStatus = "robot.audio.wakeup.status"

	// Sensor service.
	SubjectLidarCtrl     = "robot.sensor.lidar.ctrl"
	SubjectRgbdCtrl      = "robot.sensor.rgbd.ctrl"
	SubjectBinocularCtrl = "robot.sensor.binocular.ctrl"

	StreamLidarImu        = "robot.sensor.lidar.imu"
	StreamLidarPointCloud = "robot.sensor.lidar.pointcloud"
	StreamRgbdColorImage  = "robot.sensor.rgbd.color"
	StreamRgbdDepthImage  = "robot.sensor.rgbd.depth"
	StreamRgbdCameraInfo  = "robot.sensor.rgbd.camerainfo"
	StreamBinocularFrame  = "robot.sensor.binocular.frame"
	StreamBinocularInfo   = "robot.sensor.binocular.camerainfo"

	// Motion service, shared.
	SubjectControlLevelSet = "robot.motion.level.set"
	SubjectControlLevelGet = "robot.motion.level.get"

	// Motion service, high level.
	SubjectGaitSet  = "robot.motion.gait.set"
	SubjectGaitGet  = "robot.motion.gait.get"
	SubjectTrick    = "robot.motion.trick"
	SubjectHeadMove = "robot.motion.head.move"

	StreamJoystick = "robot.motion.joystick"

	// Motion service, low level. Command subjects are fire-and-forget
	// publishes at the configured control period; state subjects mirror
	// them back from the robot.
	StreamArmCommand   = "robot.motion.low.arm.cmd"
	StreamLegCommand   = "robot.motion.low.leg.cmd"
	StreamHeadCommand  = "robot.motion.low.head.cmd"
	StreamWaistCommand = "robot.motion.low.waist.cmd"
	StreamHandCommand  = "robot.motion.low.hand.cmd"

	StreamArmState   = "robot.motion.low.arm.state"
	StreamLegState   = "robot.motion.low.leg.state"
	StreamHeadState  = "robot.motion.low.head.state"
	StreamWaistState = "robot.motion.low.waist.state"
	StreamHandState  = "robot.motion.low.hand.state"
	StreamBodyImu    = "robot.motion.low.imu"

	// SLAM and navigation service.
	SubjectSlamModeSet     = "robot.slam.mode.set"
	SubjectSlamModeGet     = "robot.slam.mode.get"
	SubjectMappingStart    = "robot.slam.mapping.start"
	SubjectMappingCancel   = "robot.slam.mapping.cancel"
	SubjectMapSave         = "robot.slam.map.save"
	SubjectMapLoad         = "robot.slam.map.load"
	SubjectMapDelete       = "robot.slam.map.delete"
	SubjectMapGetPath      = "robot.slam.map.path"
	SubjectMapGetAll       = "robot.slam.map.all"
	SubjectPointCloudMap   = "robot.slam.map.pointcloud"
	SubjectInitPose        = "robot.slam.pose.init"
	SubjectLocalization    = "robot.slam.pose.current"
	SubjectNavModeSet      = "robot.nav.mode.set"
	SubjectNavModeGet      = "robot.nav.mode.get"
	SubjectNavTargetSet    = "robot.nav.target.set"
	SubjectNavTaskPause    = "robot.nav.task.pause"
	SubjectNavTaskResume   = "robot.nav.task.resume"
	SubjectNavTaskCancel   = "robot.nav.task.cancel"
	SubjectNavTaskStatus   = "robot.nav.task.status"
	SubjectOdometryCtrl    = "robot.slam.odometry.ctrl"

	StreamOdometry = "robot.slam.odometry"

	// State monitor service.
	SubjectRobotState = "robot.monitor.state"
)
