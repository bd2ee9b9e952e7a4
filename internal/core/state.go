package core

// State is the facade's connection state. Transitions:
// disconnected -> connecting -> connected, with error reachable from
// connecting. Disconnect is valid from any state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	}
	return "invalid"
}
