// Package mailbox provides a multi-producer multi-consumer channel for
// passing decoded requests and responses between the runtime-owned callback
// thread and application worker goroutines. Values sent on the same mailbox
// are received in send order; no ordering holds across different mailboxes.
package mailbox

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Send and Recv after Close.
	ErrClosed = errors.New("mailbox closed")
	// ErrFull is returned by TrySend when the mailbox is at capacity.
	ErrFull = errors.New("mailbox full")
)

// defaultDepth bounds a mailbox when the caller does not pick a depth.
const defaultDepth = 64

// Mailbox is a bounded FIFO channel safe for concurrent producers and
// consumers. Create instances with New.
type Mailbox[T any] struct {
	ch        chan T
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a mailbox holding up to depth values. Non-positive depth uses
// a default.
func New[T any](depth int) *Mailbox[T] {
	if depth <= 0 {
		depth = defaultDepth
	}
	return &Mailbox[T]{
		ch:   make(chan T, depth),
		done: make(chan struct{}),
	}
}

// Send enqueues v, blocking while the mailbox is full. It fails when the
// mailbox closes or ctx is done before the value is accepted.
func (m *Mailbox[T]) Send(ctx context.Context, v T) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	select {
	case m.ch <- v:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues v without blocking.
func (m *Mailbox[T]) TrySend(v T) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	select {
	case m.ch <- v:
		return nil
	default:
		return ErrFull
	}
}

// Recv dequeues the next value, blocking while the mailbox is empty. After
// Close, Recv drains any buffered values before reporting ErrClosed.
func (m *Mailbox[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-m.ch:
		return v, nil
	default:
	}
	select {
	case v := <-m.ch:
		return v, nil
	case <-m.done:
		// Close raced with a send; prefer the value if one landed.
		select {
		case v := <-m.ch:
			return v, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Len returns the number of values currently buffered.
func (m *Mailbox[T]) Len() int { return len(m.ch) }

// Close stops the mailbox. Pending Send calls fail with ErrClosed; buffered
// values remain receivable. Close is idempotent.
func (m *Mailbox[T]) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}
