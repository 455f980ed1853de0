package core

import "errors"

var (
	// ErrClientClosed is returned when sending to a client whose transport is gone.
	ErrClientClosed = errors.New("client closed")
	// ErrOutboxFull is returned when a client is not draining its outbox fast enough.
	ErrOutboxFull = errors.New("client outbox full")
)
