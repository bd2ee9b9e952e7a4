// Package core holds the boundary contracts between the facade and its
// collaborators: the event channel, the auth collaborator, and the
// connection state machine.
package core

import (
	"context"
	"errors"
)

// ErrBackpressure is returned by Emit when the transport's send buffer
// is full. The frame is dropped, not queued.
var ErrBackpressure = errors.New("backpressure")

// EventHandler receives the raw bytes of one inbound named event.
type EventHandler func(data []byte)

// Transport is a bidirectional named-event channel. Implementations must
// tolerate repeated Connect and Disconnect calls; the facade's state
// machine guards ordering but not the transport's own lifecycle.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Emit(name string, payload any) error
	On(name string, h EventHandler)
	Off(name string)
	Connected() bool
}

// TokenProvider supplies the bearer token attached to REST and socket
// requests. Token storage and refresh live outside this subsystem.
type TokenProvider interface {
	Token() (string, error)
}

// StaticToken is a TokenProvider for a fixed token (dev and tests).
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }
