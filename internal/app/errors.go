package app

import "errors"

var (
	// ErrNotConnected is returned by operations that need a live event
	// channel when the client is disconnected. Operations never
	// silently no-op.
	ErrNotConnected = errors.New("breakout: not connected")

	// ErrConnectInFlight rejects a Connect or Reconnect while another
	// connect is still in progress.
	ErrConnectInFlight = errors.New("breakout: connect already in progress")

	// errAckTimeout is the internal signal that the create-room
	// acknowledgment wait expired. Callers never see it; it routes the
	// create to the REST fallback.
	errAckTimeout = errors.New("breakout: acknowledgment timed out")
)
