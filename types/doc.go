// Package types defines the data model shared by every SDK controller: the
// uniform Status result, robot state and fault records, motion control
// commands, sensor telemetry messages, audio commands, and SLAM/navigation
// structures.
//
// All types here are plain values with JSON tags matching the robot's wire
// format. They carry no behavior beyond validation and accessors; controllers
// own all remote interaction.
package types
