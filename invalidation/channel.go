package invalidation

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	eventsPath = "/api/auth/events"

	maxReconnectAttempts = 5
	reconnectStep        = time.Second
	maxReconnectDelay    = 10 * time.Second
)

var NoAccessTokenErr = errors.New("no access token available")

// timeAfterFunc schedules reconnects. Overridable in tests.
var timeAfterFunc = time.AfterFunc

// Channel maintains the one-way server-push subscription that delivers
// session-lifecycle signals to the console. It owns a single connection and
// at most one pending reconnect timer; opening always tears down whatever
// existed before.
//
// The subscription is authenticated by passing the access token in the query
// string, because the underlying stream mechanism cannot carry custom
// headers. That matches the backend contract as deployed; moving the token
// out of the URL is a backend-coordinated change.
type Channel struct {
	baseURL    string
	token      TokenFunc
	sink       EventSink
	httpClient *http.Client
	log        zerolog.Logger
	metrics    *Metrics

	mu         sync.Mutex
	state      State
	gen        int // connection generation; events from stale streams are dropped
	cancel     context.CancelFunc
	retryTimer *time.Timer
	attempts   int
	gaveUp     bool
}

// Option modifies a Channel instance.
type Option func(*Channel)

// WithHTTPClient overrides the underlying HTTP client. The client must not
// set an overall timeout: the stream is long-lived.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Channel) {
		c.httpClient = httpClient
	}
}

// WithLogger overrides the default global logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Channel) {
		c.log = logger
	}
}

// WithMetrics attaches channel instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Channel) {
		c.metrics = m
	}
}

// New creates a closed Channel for the backend at baseURL. token is consulted
// on every open so reconnects always carry the current access token; sink
// receives the duplicate-login signal and the gave-up notification.
func New(baseURL string, token TokenFunc, sink EventSink, options ...Option) (*Channel, error) {
	if token == nil {
		return nil, errors.New("[invalidation.New] token func is required")
	}
	if sink == nil {
		return nil, errors.New("[invalidation.New] event sink is required")
	}

	c := &Channel{
		baseURL:    baseURL,
		token:      token,
		sink:       sink,
		httpClient: &http.Client{},
		log:        log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Open starts a new subscription, first cancelling any existing connection
// and pending reconnect timer. It fails only when no access token is
// available; connection errors are handled by the reconnect policy.
func (c *Channel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.token()
	if token == "" {
		return NoAccessTokenErr
	}

	c.teardownLocked()
	c.attempts = 0
	c.gaveUp = false
	c.connectLocked(token)
	return nil
}

// Close cancels any pending reconnect timer and closes any open connection,
// from any state. Safe to call repeatedly.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.setStateLocked(StateClosed)
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GaveUp reports whether the channel has exhausted its reconnect attempts
// and will make no further automatic ones.
func (c *Channel) GaveUp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gaveUp
}

func (c *Channel) connectLocked(token string) {
	c.setStateLocked(StateConnecting)
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.gen++
	go c.stream(ctx, c.gen, token)
}

// teardownLocked enforces the single-connection invariant: after it returns
// no timer is pending and any in-flight stream is cancelled and stale.
func (c *Channel) teardownLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

func (c *Channel) setStateLocked(s State) {
	c.state = s
	c.metrics.stateChanged(s)
}

func (c *Channel) stream(ctx context.Context, gen int, token string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+eventsPath+"?token="+url.QueryEscape(token), nil)
	if err != nil {
		c.streamFailed(gen, errors.Wrap(err, "[Channel.stream] build request"))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.streamFailed(gen, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.streamFailed(gen, errors.Errorf("unexpected status %d", resp.StatusCode))
		return
	}
	if !c.streamOpened(gen) {
		return // superseded while connecting
	}

	reader := newEventReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			c.streamFailed(gen, err)
			return
		}

		switch ev.name {
		case EventConnected:
			c.log.Debug().Msg("invalidation channel acknowledged by backend")
		case EventKeepalive:
			// heartbeat only
		case EventDuplicateLogin:
			c.log.Info().Msg("duplicate login signalled, terminating session")
			c.metrics.duplicateLogin()
			c.sink.OnSignal()
			c.shutdown(gen)
			return
		default:
			c.log.Debug().Str("event", ev.name).Msg("ignoring stream event")
		}
	}
}

func (c *Channel) streamOpened(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.attempts = 0
	c.setStateLocked(StateOpen)
	c.log.Info().Msg("invalidation channel open")
	return true
}

func (c *Channel) streamFailed(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return // explicitly closed or superseded; nothing to do
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if c.attempts >= maxReconnectAttempts {
		c.gaveUp = true
		c.gen++
		c.setStateLocked(StateClosed)
		c.mu.Unlock()
		c.log.Warn().Err(cause).Int("attempts", maxReconnectAttempts).
			Msg("invalidation channel down, reconnect attempts exhausted")
		c.sink.OnDown(cause)
		return
	}

	c.attempts++
	attempt := c.attempts
	delay := reconnectDelay(attempt)
	c.metrics.reconnectScheduled()
	c.setStateLocked(StateReconnectScheduled)
	c.retryTimer = timeAfterFunc(delay, c.reopen)
	c.mu.Unlock()

	c.log.Warn().Err(cause).Int("attempt", attempt).Dur("delay", delay).
		Msg("invalidation channel dropped, reconnect scheduled")
}

func (c *Channel) reopen() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReconnectScheduled {
		return // cancelled between timer fire and lock acquisition
	}
	c.retryTimer = nil

	token := c.token()
	if token == "" {
		// Logged out while the reconnect was pending.
		c.setStateLocked(StateClosed)
		return
	}
	c.connectLocked(token)
}

func (c *Channel) shutdown(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.teardownLocked()
	c.setStateLocked(StateClosed)
}

// reconnectDelay is linear backoff capped at maxReconnectDelay.
func reconnectDelay(attempt int) time.Duration {
	delay := time.Duration(attempt) * reconnectStep
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}
	return delay
}
