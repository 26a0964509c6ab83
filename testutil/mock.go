package testutil

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/link"
)

// MockLink is an in-memory link.Link. Tests script per-subject replies,
// inspect captured requests and publishes, and inject telemetry messages
// into subscriptions. Zero value via NewMockLink is connected and answers
// every request with an empty OK envelope.
type MockLink struct {
	mu sync.Mutex

	connected bool

	// Scripted behavior, keyed by subject.
	replies map[string][]byte
	errs    map[string]error
	handler func(subject string, payload []byte) ([]byte, error)

	// Captured traffic.
	requests  []Message
	publishes []Message

	subs map[string][]*mockSubscription
}

// Message is one captured request or publish. Timeout is zero for
// publishes.
type Message struct {
	Subject string
	Payload []byte
	Timeout time.Duration
}

// NewMockLink creates a connected mock link.
func NewMockLink() *MockLink {
	return &MockLink{
		connected: true,
		replies:   make(map[string][]byte),
		errs:      make(map[string]error),
		subs:      make(map[string][]*mockSubscription),
	}
}

// SetConnected flips the connection state reported by IsConnected.
// Requests and publishes fail with ErrNotConnected while disconnected.
func (m *MockLink) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

// ScriptReply sets the raw reply payload for a subject.
func (m *MockLink) ScriptReply(subject string, reply []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[subject] = reply
}

// ScriptOK sets an OK envelope reply for a subject, with optional data.
func (m *MockLink) ScriptOK(subject string, data any) {
	env := map[string]any{"code": 0, "message": ""}
	if data != nil {
		env["data"] = data
	}
	raw, err := json.Marshal(env)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal scripted reply for %s: %v", subject, err))
	}
	m.ScriptReply(subject, raw)
}

// ScriptServiceError sets an error envelope reply for a subject.
func (m *MockLink) ScriptServiceError(subject string, code int, message string) {
	raw, err := json.Marshal(map[string]any{"code": code, "message": message})
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal scripted reply for %s: %v", subject, err))
	}
	m.ScriptReply(subject, raw)
}

// ScriptError makes requests on a subject fail with the given transport
// error, e.g. errors.ErrRequestTimeout.
func (m *MockLink) ScriptError(subject string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[subject] = err
}

// SetHandler installs a catch-all request handler, consulted when no
// scripted reply or error matches the subject.
func (m *MockLink) SetHandler(fn func(subject string, payload []byte) ([]byte, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
}

// Request implements link.Link.
func (m *MockLink) Request(subject string, data []byte, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil, errors.ErrNotConnected
	}
	m.requests = append(m.requests, Message{Subject: subject, Payload: data, Timeout: timeout})
	err := m.errs[subject]
	reply, scripted := m.replies[subject]
	handler := m.handler
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if scripted {
		return reply, nil
	}
	if handler != nil {
		return handler(subject, data)
	}
	return []byte(`{"code":0,"message":""}`), nil
}

// Publish implements link.Link.
func (m *MockLink) Publish(subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return errors.ErrNotConnected
	}
	m.publishes = append(m.publishes, Message{Subject: subject, Payload: data})
	return nil
}

// Subscribe implements link.Link.
func (m *MockLink) Subscribe(subject string, handler func(data []byte)) (link.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, errors.ErrNotConnected
	}
	sub := &mockSubscription{link: m, subject: subject, handler: handler}
	m.subs[subject] = append(m.subs[subject], sub)
	return sub, nil
}

// IsConnected implements link.Link.
func (m *MockLink) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Inject delivers a telemetry message to every active subscription on a
// subject, synchronously on the caller's goroutine like the real receive
// path.
func (m *MockLink) Inject(subject string, data []byte) {
	m.mu.Lock()
	subs := make([]*mockSubscription, 0, len(m.subs[subject]))
	for _, s := range m.subs[subject] {
		if !s.unsubscribed {
			subs = append(subs, s)
		}
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.handler(data)
	}
}

// InjectJSON marshals v and delivers it like Inject.
func (m *MockLink) InjectJSON(subject string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal injected message for %s: %v", subject, err))
	}
	m.Inject(subject, raw)
}

// Requests returns a copy of the captured requests.
func (m *MockLink) Requests() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestsTo returns the captured requests for one subject.
func (m *MockLink) RequestsTo(subject string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, r := range m.requests {
		if r.Subject == subject {
			out = append(out, r)
		}
	}
	return out
}

// Publishes returns a copy of the captured publishes.
func (m *MockLink) Publishes() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.publishes))
	copy(out, m.publishes)
	return out
}

// PublishesTo returns the captured publishes for one subject.
func (m *MockLink) PublishesTo(subject string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, p := range m.publishes {
		if p.Subject == subject {
			out = append(out, p)
		}
	}
	return out
}

// SubscriberCount returns the number of active subscriptions on a subject.
func (m *MockLink) SubscriberCount(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subs[subject] {
		if !s.unsubscribed {
			n++
		}
	}
	return n
}

type mockSubscription struct {
	link         *MockLink
	subject      string
	handler      func([]byte)
	unsubscribed bool
}

func (s *mockSubscription) Unsubscribe() error {
	s.link.mu.Lock()
	defer s.link.mu.Unlock()
	s.unsubscribed = true
	return nil
}

var _ link.Link = (*MockLink)(nil)
