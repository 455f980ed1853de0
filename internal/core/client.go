package core

import (
	"context"
	"sync"
)

// DefaultOutboxSize is used when NewClient is given a non-positive buffer.
const DefaultOutboxSize = 16

// Conn is one connected client as seen by the relay.
type Conn interface {
	ID() string
	RemoteAddr() string
	// Send hands msg to the transport. It must not block on a slow peer.
	Send(ctx context.Context, msg Message) error
	// Close tears down the transport. Safe to call more than once.
	Close(reason string) error
}

// Client is the Conn used by the WebSocket transport: a bounded outbox that the
// transport's write loop drains.
type Client struct {
	id   string
	addr string

	outbox chan Message
	done   chan struct{}

	closeOnce   sync.Once
	closeReason string
}

// NewClient constructs a client with an outbox of the given size.
func NewClient(id, remoteAddr string, outboxSize int) *Client {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &Client{
		id:     id,
		addr:   remoteAddr,
		outbox: make(chan Message, outboxSize),
		done:   make(chan struct{}),
	}
}

// ID returns the relay-assigned identifier.
func (c *Client) ID() string { return c.id }

// RemoteAddr returns the peer address reported by the transport.
func (c *Client) RemoteAddr() string { return c.addr }

// Send enqueues msg without blocking.
func (c *Client) Send(ctx context.Context, msg Message) error {
	select {
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case c.outbox <- msg:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Close marks the client as gone. The outbox is never closed so concurrent
// Send calls cannot panic; the write loop watches Done instead.
func (c *Client) Close(reason string) error {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.done)
	})
	return nil
}

// Outbox is drained by the transport write loop.
func (c *Client) Outbox() <-chan Message { return c.outbox }

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// CloseReason returns the reason passed to the first Close call.
func (c *Client) CloseReason() string {
	select {
	case <-c.done:
		return c.closeReason
	default:
		return ""
	}
}
