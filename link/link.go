// Package link defines the transport contract between the SDK controllers
// and the robot. Controllers depend only on Link; the NATS implementation
// lives in natsclient. Call performs the standard command exchange and maps
// transport failures onto types.Status so controllers never see raw
// transport errors.
package link

import (
	"time"
)

// Link is the minimal transport surface a controller needs.
type Link interface {
	// Request performs a timed request/response exchange on a subject.
	// The returned payload is the raw reply envelope.
	Request(subject string, data []byte, timeout time.Duration) ([]byte, error)

	// Publish sends a message on a subject without waiting for a reply.
	Publish(subject string, data []byte) error

	// Subscribe registers a handler for a subject. The handler runs on the
	// transport's receive path and must not block.
	Subscribe(subject string, handler func(data []byte)) (Subscription, error)

	// IsConnected reports whether the link is currently usable.
	IsConnected() bool
}

// Subscription is an active subject subscription.
type Subscription interface {
	// Unsubscribe removes the subscription. Safe to call more than once.
	Unsubscribe() error
}
