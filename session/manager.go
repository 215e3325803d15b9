package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ledgerops/go-console-auth/credentials"
	"github.com/ledgerops/go-console-auth/invalidation"
	"github.com/ledgerops/go-console-auth/transport"
)

// nowTimeFunc returns the current time. It can be overridden in tests.
var nowTimeFunc = time.Now

// duplicateLoginNotice is shown to the operator before the forced redirect.
const duplicateLoginNotice = "This account has been signed in from another device. You have been logged out."

// LoginService performs the credential exchange with the backend.
// *transport.Client satisfies it.
type LoginService interface {
	Login(ctx context.Context, params transport.LoginParams) (credentials.Pair, error)
}

// Channel is the live invalidation subscription as the manager sees it.
// *invalidation.Channel satisfies it.
type Channel interface {
	Open() error
	Close()
}

// ChannelFactory builds the invalidation channel wired to the manager's own
// token source and event sink. The manager constructs its channel exactly
// once, which is what makes the single-channel invariant structural.
type ChannelFactory func(token invalidation.TokenFunc, sink invalidation.EventSink) (Channel, error)

// Status is a point-in-time snapshot of the session state.
type Status struct {
	Authenticated bool
	Loading       bool

	// Degraded is set when the invalidation channel has exhausted its
	// reconnect attempts: the operator is still authenticated but duplicate
	// logins can no longer be detected until re-login or restart.
	Degraded bool
}

// Manager is the single source of truth for the console's session state and
// the owner of its startup sequence. Construct one at the composition root
// and pass it by reference; there is no package-level instance.
type Manager struct {
	creds     credentials.Store
	login     LoginService
	channel   Channel
	validator TokenValidator
	nav       Navigator
	notify    Notifier
	log       zerolog.Logger

	mu            sync.Mutex
	authenticated bool
	loading       bool
	degraded      bool
	initialized   bool
}

// ManagerOption modifies a Manager instance.
type ManagerOption func(*Manager)

// WithNavigator sets the navigation hook.
func WithNavigator(nav Navigator) ManagerOption {
	return func(m *Manager) {
		m.nav = nav
	}
}

// WithNotifier sets the forced-logout notification hook.
func WithNotifier(notify Notifier) ManagerOption {
	return func(m *Manager) {
		m.notify = notify
	}
}

// WithTokenValidator replaces the default always-succeeds startup validator.
func WithTokenValidator(v TokenValidator) ManagerOption {
	return func(m *Manager) {
		m.validator = v
	}
}

// WithLogger overrides the default global logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = logger
	}
}

// NewManager creates a Manager. The manager starts in the loading state;
// call Initialize once the composition root is assembled.
func NewManager(
	creds credentials.Store,
	login LoginService,
	newChannel ChannelFactory,
	options ...ManagerOption,
) (*Manager, error) {
	if creds == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}
	if login == nil {
		return nil, errors.New("[NewManager] login service is required")
	}
	if newChannel == nil {
		return nil, errors.New("[NewManager] channel factory is required")
	}

	m := &Manager{
		creds:     creds,
		login:     login,
		validator: AlwaysValid,
		nav:       NopNavigator{},
		notify:    NopNotifier{},
		log:       log.Logger,
		loading:   true,
	}
	for _, opt := range options {
		opt(m)
	}

	channel, err := newChannel(m.accessToken, managerSink{m})
	if err != nil {
		return nil, errors.Wrap(err, "[NewManager] channel factory")
	}
	m.channel = channel

	return m, nil
}

// Initialize resolves the startup state from the persisted Credential Pair.
// It runs at most once per manager lifetime; later calls are no-ops. The
// loading flag is false once it returns, whatever the outcome.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	m.mu.Unlock()

	defer m.setLoading(false)

	pair, err := m.creds.Load()
	if err != nil {
		m.log.Error().Err(err).Msg("credential store unreadable, starting logged out")
		m.nav.ToLogin()
		return nil
	}
	if !pair.Present() {
		m.nav.ToLogin()
		return nil
	}

	m.setAuthenticated(true)
	if err := m.channel.Open(); err != nil {
		m.log.Warn().Err(err).Msg("invalidation channel did not open at startup")
	}

	if err := m.validator.Validate(ctx, pair.AccessToken); err != nil {
		m.log.Warn().Err(err).Msg("persisted token rejected, logging out")
		m.Logout()
		m.nav.ToLogin()
	}
	return nil
}

// Login performs the credential exchange and, on success, persists the pair,
// marks the session authenticated, opens the invalidation channel and
// navigates to the dashboard. On failure the session stays unauthenticated
// and the error is returned; the caller refreshes its CAPTCHA challenge.
func (m *Manager) Login(ctx context.Context, loginID, password, captchaKey, captchaValue string) error {
	pair, err := m.login.Login(ctx, transport.LoginParams{
		LoginID:      loginID,
		Password:     password,
		CaptchaKey:   captchaKey,
		CaptchaValue: captchaValue,
	})
	if err != nil {
		return errors.Wrap(err, "[Manager.Login]")
	}

	if err := m.creds.Save(pair); err != nil {
		return errors.Wrap(err, "[Manager.Login] persist credentials")
	}

	m.mu.Lock()
	m.authenticated = true
	m.degraded = false
	m.mu.Unlock()

	if err := m.channel.Open(); err != nil {
		m.log.Warn().Err(err).Msg("invalidation channel did not open after login")
	}

	m.log.Info().Str("login_id", loginID).Msg("operator logged in")
	m.nav.ToDashboard()
	return nil
}

// Logout closes the invalidation channel (connection and any pending
// reconnect timer), erases the persisted Credential Pair and marks the
// session unauthenticated. Idempotent.
func (m *Manager) Logout() {
	m.channel.Close()

	if err := m.creds.Clear(); err != nil {
		m.log.Error().Err(err).Msg("failed to clear persisted credentials")
	}

	m.mu.Lock()
	m.authenticated = false
	m.degraded = false
	m.mu.Unlock()
}

// ForceLogout is Logout plus the operator-visible notice and the redirect to
// the login entry point. Invoked when the backend signals a duplicate login.
func (m *Manager) ForceLogout() {
	m.Logout()
	m.notify.SessionTerminated(duplicateLoginNotice)
	m.nav.ToLogin()
}

// CheckAuth reports whether a Credential Pair is currently persisted. It
// performs no network validation.
func (m *Manager) CheckAuth() bool {
	pair, err := m.creds.Load()
	if err != nil {
		return false
	}
	return pair.Present()
}

// Status returns a snapshot of the session state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Authenticated: m.authenticated,
		Loading:       m.loading,
		Degraded:      m.degraded,
	}
}

// Close releases the live resources the manager owns: the invalidation
// connection and any pending reconnect timer. Credentials and session state
// are left untouched; this is the tear-down path for shutting the console
// down, not a logout.
func (m *Manager) Close() {
	m.channel.Close()
}

func (m *Manager) setAuthenticated(v bool) {
	m.mu.Lock()
	m.authenticated = v
	m.mu.Unlock()
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

// accessToken is the channel's token source: always the freshest persisted
// token, never one cached at open time.
func (m *Manager) accessToken() string {
	pair, err := m.creds.Load()
	if err != nil {
		return ""
	}
	return pair.AccessToken
}

// managerSink adapts the manager to the channel's event-sink interface.
type managerSink struct {
	m *Manager
}

func (s managerSink) OnSignal() {
	s.m.ForceLogout()
}

func (s managerSink) OnDown(err error) {
	s.m.mu.Lock()
	s.m.degraded = true
	s.m.mu.Unlock()
	s.m.log.Warn().Err(err).Msg("session degraded: invalidation channel is down")
}
