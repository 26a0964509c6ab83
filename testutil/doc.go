// Package testutil provides test doubles for the SDK, most importantly a
// scriptable in-memory link.Link that plays the robot side of every
// request/response endpoint and telemetry subject.
package testutil
