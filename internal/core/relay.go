package core

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

const shutdownReason = "relay shut down"

// Observer receives relay activity. Implementations must be safe for concurrent use.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	MessageRelayed(kind MessageKind, delivered int)
	SendFailed()
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened()               {}
func (nopObserver) ConnectionClosed()               {}
func (nopObserver) MessageRelayed(MessageKind, int) {}
func (nopObserver) SendFailed()                     {}

// MemberInfo describes a connected client.
type MemberInfo struct {
	ID         string
	RemoteAddr string
}

// Relay keeps the set of connected clients and forwards every message a client
// sends to all the other clients.
type Relay struct {
	mu      sync.Mutex
	members []Conn
	closed  bool

	log *zerolog.Logger
	obs Observer
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger used for connection and message events.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.log = logger
		}
	}
}

// WithObserver registers an Observer, typically the metrics recorder.
func WithObserver(obs Observer) Option {
	return func(r *Relay) {
		if obs != nil {
			r.obs = obs
		}
	}
}

// NewRelay creates a relay with an empty membership set.
func NewRelay(opts ...Option) *Relay {
	nop := zerolog.Nop()
	r := &Relay{
		log: &nop,
		obs: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect adds conn to the membership set. Adding a member twice is a no-op.
// After Shutdown, conn is closed instead of admitted.
func (r *Relay) Connect(conn Conn) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Debug().Str("client_id", conn.ID()).Msg("relay shut down, rejecting client")
		if err := conn.Close(shutdownReason); err != nil {
			r.log.Debug().Err(err).Str("client_id", conn.ID()).Msg("close rejected client")
		}
		return
	}
	if r.indexLocked(conn) >= 0 {
		r.mu.Unlock()
		return
	}
	r.members = append(r.members, conn)
	n := len(r.members)
	r.mu.Unlock()

	r.obs.ConnectionOpened()
	r.log.Info().
		Str("client_id", conn.ID()).
		Str("remote_addr", conn.RemoteAddr()).
		Int("members", n).
		Msg("client connected")
}

// Disconnect removes conn from the membership set. Removing an absent member
// is a no-op, so duplicate close notifications are harmless.
func (r *Relay) Disconnect(conn Conn) {
	n, removed := r.remove(conn)
	if !removed {
		return
	}

	r.obs.ConnectionClosed()
	r.log.Info().
		Str("client_id", conn.ID()).
		Str("remote_addr", conn.RemoteAddr()).
		Int("members", n).
		Msg("client closed")
}

// Broadcast forwards msg to every member except from, in membership order.
// Sends happen outside the lock on a snapshot of the recipients. A recipient
// whose send fails is dropped and closed; the remaining recipients still get
// the message.
func (r *Relay) Broadcast(ctx context.Context, from Conn, msg Message) {
	recipients, ok := r.recipients(from)
	if !ok {
		r.log.Debug().Str("client_id", from.ID()).Msg("ignoring message from non-member")
		return
	}

	ev := r.log.Debug().
		Str("client_id", from.ID()).
		Str("kind", msg.Kind.String()).
		Int("size", len(msg.Data)).
		Int("recipients", len(recipients))
	if msg.Kind == MessageText {
		ev = ev.Str("payload", string(msg.Data))
	}
	ev.Msg("relaying message")

	delivered := 0
	for _, c := range recipients {
		if err := c.Send(ctx, msg); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				r.log.Debug().Err(err).Str("client_id", from.ID()).Msg("broadcast interrupted")
				break
			}
			r.dropFailed(c, err)
			continue
		}
		delivered++
	}

	r.obs.MessageRelayed(msg.Kind, delivered)
}

// Len returns the number of connected clients.
func (r *Relay) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Members returns a snapshot of the connected clients in membership order.
func (r *Relay) Members() []MemberInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]MemberInfo, 0, len(r.members))
	for _, c := range r.members {
		out = append(out, MemberInfo{ID: c.ID(), RemoteAddr: c.RemoteAddr()})
	}
	return out
}

// Shutdown closes every member, empties the membership set and stops
// admitting new clients.
func (r *Relay) Shutdown(reason string) {
	r.mu.Lock()
	r.closed = true
	members := r.members
	r.members = nil
	r.mu.Unlock()

	for _, c := range members {
		if err := c.Close(reason); err != nil {
			r.log.Warn().Err(err).Str("client_id", c.ID()).Msg("close member on shutdown")
		}
		r.obs.ConnectionClosed()
	}
	if len(members) > 0 {
		r.log.Info().Int("closed", len(members)).Msg("relay shut down")
	}
}

func (r *Relay) dropFailed(c Conn, err error) {
	r.obs.SendFailed()
	r.log.Warn().
		Err(err).
		Str("client_id", c.ID()).
		Str("remote_addr", c.RemoteAddr()).
		Msg("send failed, dropping client")

	r.Disconnect(c)
	if closeErr := c.Close("send failed"); closeErr != nil {
		r.log.Debug().Err(closeErr).Str("client_id", c.ID()).Msg("close failed client")
	}
}

// recipients returns every member except from, and whether from is a member.
func (r *Relay) recipients(from Conn) ([]Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	isMember := false
	out := make([]Conn, 0, len(r.members))
	for _, c := range r.members {
		if c == from {
			isMember = true
			continue
		}
		out = append(out, c)
	}
	return out, isMember
}

func (r *Relay) remove(conn Conn) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(conn)
	if i < 0 {
		return len(r.members), false
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	return len(r.members), true
}

func (r *Relay) indexLocked(conn Conn) int {
	for i, c := range r.members {
		if c == conn {
			return i
		}
	}
	return -1
}
