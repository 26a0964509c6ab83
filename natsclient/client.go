package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/metric"
)

var _ link.Link = (*Client)(nil)

// ConnectionStatus represents the state of the robot connection.
type ConnectionStatus int

// Possible connection statuses.
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Client manages a single NATS connection to the robot. It implements
// link.Link. All methods are safe for concurrent use.
type Client struct {
	url    string
	status atomic.Value // stores ConnectionStatus
	logger Logger

	conn *nats.Conn
	js   jetstream.JetStream

	// Connection options
	localIP        string
	clientName     string
	maxReconnects  int
	reconnectWait  time.Duration
	pingInterval   time.Duration
	timeout        time.Duration
	drainTimeout   time.Duration
	requestTimeout time.Duration

	metrics *metric.Metrics

	// Callbacks
	onDisconnect   func(error)
	onReconnect    func()
	onHealthChange func(bool)

	// Health monitoring
	healthInterval time.Duration
	healthTicker   *time.Ticker
	healthDone     chan struct{}

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a new robot connection client. The connection is not
// established until Connect is called.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:            url,
		logger:         &defaultLogger{},
		maxReconnects:  -1,
		reconnectWait:  2 * time.Second,
		pingInterval:   30 * time.Second,
		healthInterval: 10 * time.Second,
		timeout:        5 * time.Second,
		drainTimeout:   10 * time.Second,
		requestTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	c.logger.Debugf("Created robot link client for %s", url)

	return c, nil
}

// URL returns the robot NATS URL.
func (m *Client) URL() string {
	return m.url
}

// Status returns the current connection status.
func (m *Client) Status() ConnectionStatus {
	val := m.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

func (m *Client) setStatus(status ConnectionStatus) {
	m.status.Store(status)
	if m.metrics != nil {
		if status == StatusConnected {
			m.metrics.LinkConnected.Set(1)
		} else {
			m.metrics.LinkConnected.Set(0)
		}
	}
}

// IsConnected reports whether the link is currently usable.
func (m *Client) IsConnected() bool {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	return conn != nil && conn.IsConnected()
}

// RTT returns the round-trip time to the robot.
func (m *Client) RTT() (time.Duration, error) {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return 0, errors.ErrNotConnected
	}
	return conn.RTT()
}

// buildConnectionOptions builds NATS options from client configuration.
func (m *Client) buildConnectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(m.maxReconnects),
		nats.ReconnectWait(m.reconnectWait),
		nats.PingInterval(m.pingInterval),
		nats.Timeout(m.timeout),
		nats.DrainTimeout(m.drainTimeout),
		nats.DisconnectErrHandler(m.handleDisconnect),
		nats.ReconnectHandler(m.handleReconnect),
		nats.ClosedHandler(m.handleClosed),
		nats.ErrorHandler(m.handleError),
	}

	if m.clientName != "" {
		opts = append(opts, nats.Name(m.clientName))
	}

	// Bind the outbound socket to the host interface on the robot's
	// network segment when one is configured.
	if m.localIP != "" {
		local := &net.TCPAddr{IP: net.ParseIP(m.localIP)}
		dialer := &net.Dialer{LocalAddr: local, Timeout: m.timeout}
		opts = append(opts, nats.SetCustomDialer(dialer))
	}

	return opts
}

// Connect establishes the connection to the robot. A failed attempt is
// transient; callers may retry.
func (m *Client) Connect(ctx context.Context) error {
	if m.closed.Load() {
		return errors.ErrShutdown
	}

	m.setStatus(StatusConnecting)
	m.logger.Printf("Connecting to robot at %s", m.url)

	opts := m.buildConnectionOptions()

	type dialResult struct {
		conn *nats.Conn
		err  error
	}
	connectDone := make(chan dialResult, 1)
	go func() {
		conn, err := nats.Connect(m.url, opts...)
		connectDone <- dialResult{conn: conn, err: err}
	}()

	select {
	case res := <-connectDone:
		if res.err != nil {
			m.setStatus(StatusDisconnected)
			return errors.WrapTransient(res.err, "Client", "Connect", "establish connection")
		}
		m.mu.Lock()
		m.conn = res.conn
		if js, err := jetstream.New(res.conn); err == nil {
			m.js = js
		}
		m.mu.Unlock()
	case <-ctx.Done():
		m.setStatus(StatusDisconnected)
		// The dial keeps running; reap its result so a late success
		// cannot leave a live connection behind a failed Connect.
		go func() {
			if res := <-connectDone; res.conn != nil {
				res.conn.Close()
			}
		}()
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}

	m.setStatus(StatusConnected)
	m.logger.Printf("Connected to robot at %s", m.url)

	if m.healthInterval > 0 {
		m.startHealthMonitoring()
	}

	if m.onHealthChange != nil {
		m.onHealthChange(true)
	}

	return nil
}

// Close drains and closes the connection. Draining is bounded by the drain
// timeout or the context deadline, whichever is shorter; after that the
// connection is force closed. Safe to call more than once.
func (m *Client) Close(ctx context.Context) error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.closed.Load() {
		return nil
	}
	m.closed.Store(true)

	m.stopHealthMonitoring()

	// Detach the connection under the lock; the drain goroutine must only
	// ever see the local copy.
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.js = nil
	m.mu.Unlock()

	var drainErr error
	if conn != nil {
		drainTimeout := m.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		drainDone := make(chan error, 1)
		go func() {
			drainDone <- conn.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				drainErr = errors.Wrap(err, "Client", "Close", "drain connection")
				m.logger.Errorf("Drain error: %v", err)
			}
		case <-time.After(drainTimeout):
			drainErr = errors.WrapTransient(
				fmt.Errorf("drain timeout after %v", drainTimeout),
				"Client", "Close", "drain timeout")
			m.logger.Errorf("Drain timeout after %v, force closing", drainTimeout)
		case <-ctx.Done():
			drainErr = errors.Wrap(ctx.Err(), "Client", "Close", "context cancelled during drain")
		}

		conn.Close()
	}

	m.setStatus(StatusDisconnected)
	return drainErr
}

// Request performs a timed request/response exchange on a subject.
// Failures are mapped onto the sentinel errors in the errors package so
// callers can classify the outcome without knowing the transport.
func (m *Client) Request(subject string, data []byte, timeout time.Duration) ([]byte, error) {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return nil, fmt.Errorf("request %s: %w", subject, errors.ErrNotConnected)
	}
	if timeout <= 0 {
		timeout = m.requestTimeout
	}

	start := time.Now()
	msg, err := conn.Request(subject, data, timeout)
	if err != nil {
		switch {
		case stderrors.Is(err, nats.ErrTimeout):
			return nil, fmt.Errorf("request %s: %w", subject, errors.ErrRequestTimeout)
		case stderrors.Is(err, nats.ErrNoResponders):
			return nil, fmt.Errorf("request %s: %w", subject, errors.ErrServiceUnavailable)
		case stderrors.Is(err, nats.ErrConnectionClosed), stderrors.Is(err, nats.ErrConnectionDraining):
			return nil, fmt.Errorf("request %s: %w", subject, errors.ErrConnectionLost)
		default:
			return nil, errors.WrapTransient(err, "Client", "Request", "exchange on "+subject)
		}
	}

	if m.metrics != nil {
		m.metrics.LinkRTT.Set(time.Since(start).Seconds())
	}
	return msg.Data, nil
}

// Publish sends a message on a subject without waiting for a reply.
func (m *Client) Publish(subject string, data []byte) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return fmt.Errorf("publish %s: %w", subject, errors.ErrNotConnected)
	}
	return conn.Publish(subject, data)
}

// Subscribe registers a handler for a subject. The handler runs on the
// transport receive goroutine and must hand off quickly.
func (m *Client) Subscribe(subject string, handler func(data []byte)) (link.Subscription, error) {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return nil, fmt.Errorf("subscribe %s: %w", subject, errors.ErrNotConnected)
	}

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, errors.Wrap(err, "Client", "Subscribe", "subscribe to "+subject)
	}
	return &subscription{sub: sub}, nil
}

// SubscribeWithSubject registers a handler that also receives the concrete
// subject of each message. Needed for wildcard subscriptions where the
// matched subject varies per message, e.g. the telemetry recorder.
func (m *Client) SubscribeWithSubject(subject string, handler func(subject string, data []byte)) (link.Subscription, error) {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return nil, fmt.Errorf("subscribe %s: %w", subject, errors.ErrNotConnected)
	}

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, errors.Wrap(err, "Client", "SubscribeWithSubject", "subscribe to "+subject)
	}
	return &subscription{sub: sub}, nil
}

// subscription wraps a NATS subscription with idempotent Unsubscribe.
type subscription struct {
	sub  *nats.Subscription
	once sync.Once
	err  error
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		if err := s.sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrBadSubscription) {
			s.err = err
		}
	})
	return s.err
}

// JetStream returns the JetStream context. Only the telemetry recorder
// uses this; the control path stays on core NATS.
func (m *Client) JetStream() (jetstream.JetStream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.js == nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("JetStream not initialized"),
			"Client", "JetStream", "get JetStream context")
	}
	return m.js, nil
}

// CreateStream creates a JetStream stream.
func (m *Client) CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	js, err := m.JetStream()
	if err != nil {
		return nil, err
	}
	return js.CreateStream(ctx, cfg)
}

// PublishToStream publishes to a JetStream stream.
func (m *Client) PublishToStream(ctx context.Context, subject string, data []byte) error {
	js, err := m.JetStream()
	if err != nil {
		return err
	}
	_, err = js.Publish(ctx, subject, data)
	return err
}

// Event handlers for the underlying connection.
func (m *Client) handleDisconnect(_ *nats.Conn, err error) {
	m.setStatus(StatusReconnecting)

	m.mu.RLock()
	onDisconnect := m.onDisconnect
	onHealthChange := m.onHealthChange
	m.mu.RUnlock()

	if onDisconnect != nil {
		go onDisconnect(err)
	}
	if onHealthChange != nil {
		go onHealthChange(false)
	}
}

func (m *Client) handleReconnect(_ *nats.Conn) {
	m.setStatus(StatusConnected)
	if m.metrics != nil {
		m.metrics.LinkReconnects.Inc()
	}

	m.mu.RLock()
	onReconnect := m.onReconnect
	onHealthChange := m.onHealthChange
	m.mu.RUnlock()

	if onReconnect != nil {
		go onReconnect()
	}
	if onHealthChange != nil {
		go onHealthChange(true)
	}
}

func (m *Client) handleClosed(_ *nats.Conn) {
	m.setStatus(StatusDisconnected)

	m.mu.RLock()
	onHealthChange := m.onHealthChange
	m.mu.RUnlock()

	if onHealthChange != nil {
		go onHealthChange(false)
	}
}

func (m *Client) handleError(_ *nats.Conn, _ *nats.Subscription, err error) {
	m.logger.Errorf("Link error: %v", err)
}

// startHealthMonitoring starts periodic health checks.
func (m *Client) startHealthMonitoring() {
	m.stopHealthMonitoring()

	m.mu.Lock()
	m.healthTicker = time.NewTicker(m.healthInterval)
	m.healthDone = make(chan struct{})
	ticker := m.healthTicker
	done := m.healthDone
	m.mu.Unlock()

	go func() {
		defer ticker.Stop()
		lastHealthy := m.IsConnected()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.mu.RLock()
				conn := m.conn
				m.mu.RUnlock()

				if conn == nil {
					continue
				}

				healthy := conn.IsConnected()
				if rtt, err := conn.RTT(); err != nil {
					healthy = false
				} else if m.metrics != nil {
					m.metrics.LinkRTT.Set(rtt.Seconds())
				}

				if healthy && m.Status() != StatusConnected {
					m.setStatus(StatusConnected)
				} else if !healthy && m.Status() == StatusConnected {
					m.setStatus(StatusReconnecting)
				}

				if healthy != lastHealthy && m.onHealthChange != nil {
					m.onHealthChange(healthy)
				}
				lastHealthy = healthy
			}
		}
	}()
}

// stopHealthMonitoring stops the health monitoring goroutine.
func (m *Client) stopHealthMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.healthTicker != nil {
		m.healthTicker.Stop()
		m.healthTicker = nil
	}
	if m.healthDone != nil {
		close(m.healthDone)
		m.healthDone = nil
	}
}
