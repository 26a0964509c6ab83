package buffer

import "github.com/MagiclabRobotics/magicbot-z1-sdk/metric"

// Option configures a buffer at construction time.
type Option[T any] func(*bufferOptions[T])

type bufferOptions[T any] struct {
	policy       OverflowPolicy
	dropCallback DropCallback[T]
	registry     *metric.MetricsRegistry
	name         string
}

func applyOptions[T any](options ...Option[T]) *bufferOptions[T] {
	opts := &bufferOptions[T]{
		policy: DropOldest,
	}
	for _, opt := range options {
		opt(opts)
	}
	return opts
}

// WithOverflowPolicy sets the behavior when the buffer is full.
// The default is DropOldest.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(o *bufferOptions[T]) {
		o.policy = policy
	}
}

// WithDropCallback registers a callback invoked with each dropped item.
// The callback runs on the writer's goroutine and must not block.
func WithDropCallback[T any](cb DropCallback[T]) Option[T] {
	return func(o *bufferOptions[T]) {
		o.dropCallback = cb
	}
}

// WithMetrics enables Prometheus metrics for the buffer. The name labels
// the metrics and must be unique per registry, e.g. the stream name.
func WithMetrics[T any](registry *metric.MetricsRegistry, name string) Option[T] {
	return func(o *bufferOptions[T]) {
		o.registry = registry
		o.name = name
	}
}
