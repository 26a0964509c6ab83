// Package metric exposes the SDK's Prometheus instrumentation: command
// counts and latencies, per-stream delivery and drop counters, link health,
// and low-level publish counters.
//
// Metrics are optional throughout the SDK: controllers accept a nil registry
// and skip instrumentation. Applications that want them create one registry,
// pass it through robot.WithMetrics, and serve it with Handler.
package metric
