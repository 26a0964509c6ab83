package buffer

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Write after the buffer has been closed.
var ErrClosed = errors.New("buffer closed")

// ErrFull is returned by Write under the DropNewest policy when the buffer
// is at capacity. The written item is the one dropped.
var ErrFull = errors.New("buffer full")

// circularBuffer is a fixed-capacity ring. Writes and reads are O(1).
type circularBuffer[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	tail   int
	size   int
	closed bool

	policy       OverflowPolicy
	dropCallback DropCallback[T]
	stats        *Statistics
	metrics      *bufferMetrics
}

func newCircularBuffer[T any](capacity int, opts *bufferOptions[T]) (*circularBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer capacity must be positive, got %d", capacity)
	}
	b := &circularBuffer[T]{
		items:        make([]T, capacity),
		policy:       opts.policy,
		dropCallback: opts.dropCallback,
		stats:        &Statistics{},
	}
	if opts.registry != nil {
		m, err := newBufferMetrics(opts.registry, opts.name)
		if err != nil {
			return nil, err
		}
		b.metrics = m
	}
	return b, nil
}

func (b *circularBuffer[T]) Write(item T) error {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	var dropped T
	var didDrop bool

	if b.size == len(b.items) {
		switch b.policy {
		case DropNewest:
			b.stats.recordDrop()
			if b.metrics != nil {
				b.metrics.recordDrop()
			}
			cb := b.dropCallback
			b.mu.Unlock()
			if cb != nil {
				cb(item)
			}
			return ErrFull
		default: // DropOldest
			dropped = b.items[b.head]
			var zero T
			b.items[b.head] = zero
			b.head = (b.head + 1) % len(b.items)
			b.size--
			didDrop = true
			b.stats.recordDrop()
			if b.metrics != nil {
				b.metrics.recordDrop()
			}
		}
	}

	b.items[b.tail] = item
	b.tail = (b.tail + 1) % len(b.items)
	b.size++
	b.stats.recordWrite(b.size)
	if b.metrics != nil {
		b.metrics.recordWrite(b.size)
	}
	cb := b.dropCallback
	b.mu.Unlock()

	if didDrop && cb != nil {
		cb(dropped)
	}
	return nil
}

func (b *circularBuffer[T]) Read() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.size == 0 {
		return zero, false
	}
	item := b.items[b.head]
	b.items[b.head] = zero
	b.head = (b.head + 1) % len(b.items)
	b.size--
	b.stats.recordRead(1)
	if b.metrics != nil {
		b.metrics.recordRead(b.size)
	}
	return item, true
}

func (b *circularBuffer[T]) ReadBatch(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 || max <= 0 {
		return nil
	}
	n := max
	if n > b.size {
		n = b.size
	}
	out := make([]T, 0, n)
	var zero T
	for i := 0; i < n; i++ {
		out = append(out, b.items[b.head])
		b.items[b.head] = zero
		b.head = (b.head + 1) % len(b.items)
	}
	b.size -= n
	b.stats.recordRead(n)
	if b.metrics != nil {
		b.metrics.recordRead(b.size)
	}
	return out
}

func (b *circularBuffer[T]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *circularBuffer[T]) Capacity() int {
	return len(b.items)
}

func (b *circularBuffer[T]) IsEmpty() bool {
	return b.Size() == 0
}

func (b *circularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head, b.tail, b.size = 0, 0, 0
	if b.metrics != nil {
		b.metrics.recordRead(0)
	}
}

func (b *circularBuffer[T]) Stats() *Statistics {
	return b.stats
}

func (b *circularBuffer[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.metrics != nil {
		b.metrics.unregister()
	}
	return nil
}
