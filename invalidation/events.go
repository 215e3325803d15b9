package invalidation

// Named events pushed by the backend on the session event stream.
const (
	EventConnected      = "connected"
	EventKeepalive      = "keepalive"
	EventDuplicateLogin = "duplicate-login"
)

// TokenFunc returns the current access token. It is called every time a
// connection is opened, so the channel always subscribes with the freshest
// token rather than one cached at construction.
type TokenFunc func() string

// EventSink receives the two session-lifecycle outcomes a channel can
// produce. OnSignal fires when the backend asserts a duplicate login; the
// expected reaction is a forced logout, which closes the channel. OnDown
// fires once when the channel has exhausted its reconnect attempts and will
// make no further automatic attempts.
//
// Both callbacks are invoked from the channel's stream goroutine without any
// channel lock held, so they may call back into the channel (e.g. Close).
type EventSink interface {
	OnSignal()
	OnDown(err error)
}
