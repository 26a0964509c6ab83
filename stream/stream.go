// Package stream implements the typed telemetry streams behind every
// Subscribe/Unsubscribe pair in the SDK. Each Stream owns a bounded buffer
// and a dispatch goroutine: the transport receive path only decodes and
// buffers, user callbacks run on the dispatch goroutine, and replacing or
// removing the callback is atomic with respect to in-flight delivery.
package stream

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/pkg/buffer"
)

// DefaultCapacity is the per-stream buffer capacity when none is
// configured. Sized for bursts of high-rate joint state at 500 Hz.
const DefaultCapacity = 256

// Callback receives decoded telemetry. It runs on the stream's dispatch
// goroutine; slow callbacks cause the buffer to drop the oldest messages,
// they never block the transport.
//
// A callback must not call Subscribe or Unsubscribe on its own stream:
// both wait for the in-flight delivery to finish, so calling them from
// inside the callback deadlocks. Hand such calls off to another goroutine.
type Callback[T any] func(msg T)

// Stream is one named telemetry stream carrying values of type T.
type Stream[T any] struct {
	name    string
	subject string
	link    link.Link
	log     *slog.Logger
	metrics *metric.Metrics

	buf buffer.Buffer[T]

	// mu guards the open/closed state and the link subscription.
	mu     sync.Mutex
	sub    link.Subscription
	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	// cbMu serializes callback invocation with Subscribe and Unsubscribe.
	cbMu sync.Mutex
	cb   Callback[T]
}

// Option configures a Stream.
type Option func(*config)

type config struct {
	capacity int
	log      *slog.Logger
	registry *metric.MetricsRegistry
}

// WithCapacity sets the bounded buffer capacity.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithLogger sets the stream logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithMetrics exports per-stream counters through the registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *config) { c.registry = registry }
}

// New creates a stream bound to a subject. The stream starts closed; Open
// attaches it to the link. Subscribe works in either state.
func New[T any](name, subject string, l link.Link, opts ...Option) (*Stream[T], error) {
	cfg := &config{capacity: DefaultCapacity, log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Stream[T]{
		name:    name,
		subject: subject,
		link:    l,
		log:     cfg.log.With("stream", name),
	}
	if cfg.registry != nil {
		s.metrics = cfg.registry.CoreMetrics()
	}

	buf, err := buffer.NewCircular[T](cfg.capacity,
		buffer.WithOverflowPolicy[T](buffer.DropOldest),
		buffer.WithDropCallback[T](func(T) {
			if s.metrics != nil {
				s.metrics.StreamDropped.WithLabelValues(s.name).Inc()
			}
		}),
	)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Stream", "New", "create buffer for "+name)
	}
	s.buf = buf
	return s, nil
}

// Name returns the stream name.
func (s *Stream[T]) Name() string { return s.name }

// Subject returns the transport subject the stream listens on.
func (s *Stream[T]) Subject() string { return s.subject }

// Subscribe installs cb as the stream's callback, replacing any previous
// one. The replacement is atomic: once Subscribe returns, the previous
// callback will not be invoked again. Subscribe blocks until any in-flight
// delivery returns, so it must not be called from the stream's own
// callback.
func (s *Stream[T]) Subscribe(cb Callback[T]) {
	s.cbMu.Lock()
	s.cb = cb
	s.cbMu.Unlock()
}

// Unsubscribe removes the callback. Idempotent; once it returns, the
// callback will not be invoked again. Buffered messages keep draining and
// are discarded. Like Subscribe, it blocks until any in-flight delivery
// returns and must not be called from the stream's own callback.
func (s *Stream[T]) Unsubscribe() {
	s.cbMu.Lock()
	s.cb = nil
	s.cbMu.Unlock()
}

// IsOpen reports whether the stream is attached to the link.
func (s *Stream[T]) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}

// Open attaches the stream to the link and starts the dispatch goroutine.
// Opening an open stream is a no-op. A callback registered before Open
// starts receiving as soon as messages arrive.
func (s *Stream[T]) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return nil
	}
	if s.link == nil {
		return errors.ErrNotConnected
	}

	sub, err := s.link.Subscribe(s.subject, s.receive)
	if err != nil {
		return errors.Wrap(err, "Stream", "Open", "subscribe "+s.subject)
	}

	s.sub = sub
	s.notify = make(chan struct{}, 1)
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.dispatch(s.notify, s.done)

	s.log.Debug("stream opened", "subject", s.subject)
	return nil
}

// Close detaches the stream from the link and stops the dispatch
// goroutine, waiting for any in-flight callback to return. The callback
// registration survives Close, so Open resumes delivery. Idempotent.
func (s *Stream[T]) Close() error {
	s.mu.Lock()
	if s.sub == nil {
		s.mu.Unlock()
		return nil
	}
	sub := s.sub
	done := s.done
	s.sub = nil
	s.notify = nil
	s.done = nil
	s.mu.Unlock()

	err := sub.Unsubscribe()
	close(done)
	s.wg.Wait()
	s.buf.Clear()

	s.log.Debug("stream closed", "subject", s.subject)
	if err != nil {
		return errors.Wrap(err, "Stream", "Close", "unsubscribe "+s.subject)
	}
	return nil
}

// receive runs on the transport receive path. It only decodes and buffers.
func (s *Stream[T]) receive(data []byte) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("dropping undecodable message", "subject", s.subject, "error", err)
		return
	}

	if err := s.buf.Write(msg); err != nil {
		return
	}
	if s.metrics != nil {
		s.metrics.StreamMessages.WithLabelValues(s.name).Inc()
	}

	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
}

// dispatch drains the buffer and invokes the callback until the stream is
// closed.
func (s *Stream[T]) dispatch(notify <-chan struct{}, done <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-done:
			return
		case <-notify:
			for {
				msg, ok := s.buf.Read()
				if !ok {
					break
				}
				s.deliver(msg)
			}
		}
	}
}

// deliver invokes the callback under cbMu so Subscribe and Unsubscribe
// are atomic with respect to in-flight delivery. Panics in user code are
// recovered here; they must not take down the dispatch goroutine.
func (s *Stream[T]) deliver(msg T) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	if s.cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if s.metrics != nil {
				s.metrics.CallbackPanics.WithLabelValues(s.name).Inc()
			}
			s.log.Error("recovered panic in stream callback", "subject", s.subject, "panic", r)
		}
	}()
	s.cb(msg)
}

// Stats exposes the underlying buffer statistics.
func (s *Stream[T]) Stats() *buffer.Statistics {
	return s.buf.Stats()
}
