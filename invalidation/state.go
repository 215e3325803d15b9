package invalidation

// State is the lifecycle state of a Channel. The channel owns exactly one
// connection and at most one pending reconnect timer; the state names which
// of the two (if either) currently exists.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateReconnectScheduled
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnectScheduled:
		return "reconnect-scheduled"
	}
	return "unknown"
}
