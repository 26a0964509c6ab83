// Package record captures raw telemetry into a JetStream stream for
// offline replay and analysis. Messages are republished under the "rec."
// prefix so the recording stream never intercepts live control traffic.
package record

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/config"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
)

// recordPrefix namespaces recorded copies away from the live subjects.
const recordPrefix = "rec."

// Source is the transport surface the recorder needs: wildcard
// subscriptions that report the concrete subject per message, plus
// JetStream publishing. natsclient.Client satisfies it.
type Source interface {
	SubscribeWithSubject(subject string, handler func(subject string, data []byte)) (link.Subscription, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	PublishToStream(ctx context.Context, subject string, data []byte) error
	IsConnected() bool
}

// Recorder copies telemetry messages into a JetStream stream. Start and
// Stop are safe for concurrent use; a recorder may be restarted.
type Recorder struct {
	source Source
	cfg    config.RecorderConfig
	log    *slog.Logger

	mu      sync.Mutex
	running bool
	subs    []link.Subscription

	recorded atomic.Uint64
	dropped  atomic.Uint64
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets the recorder logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Recorder) { r.log = log }
}

// New creates a telemetry recorder. The configuration decides the stream
// name, the subjects to capture and the retention age.
func New(source Source, cfg config.RecorderConfig, opts ...Option) *Recorder {
	r := &Recorder{
		source: source,
		cfg:    cfg,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "recorder")
	return r
}

// Start creates the recording stream and subscribes to the configured
// subjects. Calling Start on a running recorder is a no-op.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	if r.cfg.Stream == "" {
		return fmt.Errorf("recorder stream name is empty")
	}
	if len(r.cfg.Subjects) == 0 {
		return fmt.Errorf("recorder has no subjects to capture")
	}
	if !r.source.IsConnected() {
		return fmt.Errorf("recorder source is not connected")
	}

	maxAge := time.Duration(r.cfg.MaxAge)
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	_, err := r.source.CreateStream(ctx, jetstream.StreamConfig{
		Name:     r.cfg.Stream,
		Subjects: []string{recordPrefix + ">"},
		Storage:  jetstream.FileStorage,
		MaxAge:   maxAge,
	})
	if err != nil {
		return fmt.Errorf("create recording stream %s: %w", r.cfg.Stream, err)
	}

	subs := make([]link.Subscription, 0, len(r.cfg.Subjects))
	for _, subject := range r.cfg.Subjects {
		sub, err := r.source.SubscribeWithSubject(subject, r.capture)
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return fmt.Errorf("subscribe %s for recording: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	r.subs = subs
	r.running = true
	r.log.Info("recording started",
		"stream", r.cfg.Stream, "subjects", r.cfg.Subjects, "max_age", maxAge)
	return nil
}

// capture republishes one live message into the recording stream. Runs on
// the transport receive goroutine; publish failures are counted, not
// retried, since telemetry is continuous and the next sample supersedes
// this one.
func (r *Recorder) capture(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.source.PublishToStream(ctx, recordPrefix+subject, data); err != nil {
		if r.dropped.Add(1)%1000 == 1 {
			r.log.Warn("failed to record message", "subject", subject, "error", err)
		}
		return
	}
	r.recorded.Add(1)
}

// Stop unsubscribes from all captured subjects. Recorded data stays in the
// stream until its retention age expires. Idempotent.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	for _, sub := range r.subs {
		if err := sub.Unsubscribe(); err != nil {
			r.log.Warn("failed to unsubscribe recorder", "error", err)
		}
	}
	r.subs = nil
	r.running = false
	r.log.Info("recording stopped",
		"recorded", r.recorded.Load(), "dropped", r.dropped.Load())
}

// Running reports whether the recorder is capturing.
func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Recorded returns the number of messages copied into the stream.
func (r *Recorder) Recorded() uint64 { return r.recorded.Load() }

// Dropped returns the number of messages that failed to record.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }
