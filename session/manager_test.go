package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerops/go-console-auth/credentials"
	"github.com/ledgerops/go-console-auth/invalidation"
	"github.com/ledgerops/go-console-auth/session"
	"github.com/ledgerops/go-console-auth/transport"
)

const (
	testLoginID  = "admin@bank.com"
	testPassword = "pw"
)

var testPair = credentials.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}

type fakeLogin struct {
	mu    sync.Mutex
	pair  credentials.Pair
	err   error
	calls int
}

func (f *fakeLogin) Login(_ context.Context, _ transport.LoginParams) (credentials.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return credentials.Pair{}, f.err
	}
	return f.pair, nil
}

type fakeChannel struct {
	mu      sync.Mutex
	opens   int
	closes  int
	openErr error
}

func (f *fakeChannel) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opens++
	return nil
}

func (f *fakeChannel) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
}

func (f *fakeChannel) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *fakeChannel) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

type recordingNavigator struct {
	mu         sync.Mutex
	logins     int
	dashboards int
}

func (n *recordingNavigator) ToLogin() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logins++
}

func (n *recordingNavigator) ToDashboard() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dashboards++
}

func (n *recordingNavigator) loginCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.logins
}

func (n *recordingNavigator) dashboardCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dashboards
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (n *recordingNotifier) SessionTerminated(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, reason)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

// testFixture wires a manager to fakes and captures the token source and
// event sink the manager hands to its channel factory.
type testFixture struct {
	store   *credentials.MemoryStore
	login   *fakeLogin
	channel *fakeChannel
	nav     *recordingNavigator
	notify  *recordingNotifier
	manager *session.Manager

	token invalidation.TokenFunc
	sink  invalidation.EventSink
}

func setupTestFixture(t *testing.T, options ...session.ManagerOption) *testFixture {
	t.Helper()

	f := &testFixture{
		store:   credentials.NewMemoryStore(),
		login:   &fakeLogin{pair: testPair},
		channel: &fakeChannel{},
		nav:     &recordingNavigator{},
		notify:  &recordingNotifier{},
	}

	factory := func(token invalidation.TokenFunc, sink invalidation.EventSink) (session.Channel, error) {
		f.token = token
		f.sink = sink
		return f.channel, nil
	}

	options = append([]session.ManagerOption{
		session.WithNavigator(f.nav),
		session.WithNotifier(f.notify),
	}, options...)

	manager, err := session.NewManager(f.store, f.login, factory, options...)
	require.NoError(t, err)
	f.manager = manager
	return f
}

func TestNewManagerValidatesDependencies(t *testing.T) {
	factory := func(invalidation.TokenFunc, invalidation.EventSink) (session.Channel, error) {
		return &fakeChannel{}, nil
	}

	_, err := session.NewManager(nil, &fakeLogin{}, factory)
	require.Error(t, err)

	_, err = session.NewManager(credentials.NewMemoryStore(), nil, factory)
	require.Error(t, err)

	_, err = session.NewManager(credentials.NewMemoryStore(), &fakeLogin{}, nil)
	require.Error(t, err)
}

func TestInitializeWithoutPersistedToken(t *testing.T) {
	f := setupTestFixture(t)

	require.True(t, f.manager.Status().Loading)

	require.NoError(t, f.manager.Initialize(context.Background()))

	status := f.manager.Status()
	require.False(t, status.Loading)
	require.False(t, status.Authenticated)
	require.Zero(t, f.channel.openCount())
	require.Equal(t, 1, f.nav.loginCount())
}

func TestInitializeWithPersistedToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(testPair))

	require.NoError(t, f.manager.Initialize(context.Background()))

	status := f.manager.Status()
	require.False(t, status.Loading)
	require.True(t, status.Authenticated)
	require.Equal(t, 1, f.channel.openCount())
	require.Zero(t, f.nav.loginCount())
}

func TestInitializeRunsOnce(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(testPair))

	require.NoError(t, f.manager.Initialize(context.Background()))
	require.NoError(t, f.manager.Initialize(context.Background()))

	require.Equal(t, 1, f.channel.openCount())
}

func TestInitializeLogsOutWhenValidatorRejects(t *testing.T) {
	rejecting := session.ValidatorFunc(func(context.Context, string) error {
		return transport.LoginFailedErr
	})
	f := setupTestFixture(t, session.WithTokenValidator(rejecting))
	require.NoError(t, f.store.Save(testPair))

	require.NoError(t, f.manager.Initialize(context.Background()))

	status := f.manager.Status()
	require.False(t, status.Loading)
	require.False(t, status.Authenticated)
	require.False(t, f.manager.CheckAuth())
	require.GreaterOrEqual(t, f.channel.closeCount(), 1)
	require.Equal(t, 1, f.nav.loginCount())
}

func TestLoginSuccess(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Login(context.Background(), testLoginID, testPassword, "key1", "abcd")
	require.NoError(t, err)

	require.True(t, f.manager.Status().Authenticated)
	require.True(t, f.manager.CheckAuth())
	require.Equal(t, 1, f.channel.openCount())
	require.Equal(t, 1, f.nav.dashboardCount())

	pair, err := f.store.Load()
	require.NoError(t, err)
	require.Equal(t, testPair, pair)
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	f := setupTestFixture(t)
	f.login.err = transport.InsufficientPrivilegeErr

	err := f.manager.Login(context.Background(), testLoginID, testPassword, "key1", "abcd")
	require.ErrorIs(t, err, transport.InsufficientPrivilegeErr)

	require.False(t, f.manager.Status().Authenticated)
	require.False(t, f.manager.CheckAuth())
	require.Zero(t, f.channel.openCount())
	require.Zero(t, f.nav.dashboardCount())
}

func TestLogoutClearsEverything(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), testLoginID, testPassword, "key1", "abcd"))

	f.manager.Logout()

	require.False(t, f.manager.Status().Authenticated)
	require.False(t, f.manager.CheckAuth())
	require.GreaterOrEqual(t, f.channel.closeCount(), 1)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), testLoginID, testPassword, "key1", "abcd"))

	f.manager.Logout()
	f.manager.Logout()

	status := f.manager.Status()
	require.False(t, status.Authenticated)
	require.False(t, f.manager.CheckAuth())
}

func TestDuplicateLoginSignalForcesLogout(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), testLoginID, testPassword, "key1", "abcd"))

	f.sink.OnSignal()

	require.False(t, f.manager.Status().Authenticated)
	require.False(t, f.manager.CheckAuth())
	require.Equal(t, 1, f.notify.count())
	require.Equal(t, 1, f.nav.loginCount())
	require.GreaterOrEqual(t, f.channel.closeCount(), 1)
}

func TestChannelDownMarksSessionDegraded(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), testLoginID, testPassword, "key1", "abcd"))

	f.sink.OnDown(transport.LoginFailedErr)

	status := f.manager.Status()
	require.True(t, status.Authenticated) // still logged in, just blind
	require.True(t, status.Degraded)

	// A fresh login clears the degraded flag.
	require.NoError(t, f.manager.Login(context.Background(), testLoginID, testPassword, "key1", "abcd"))
	require.False(t, f.manager.Status().Degraded)
}

func TestChannelTokenSourceReadsFreshToken(t *testing.T) {
	f := setupTestFixture(t)

	require.Empty(t, f.token())

	require.NoError(t, f.store.Save(testPair))
	require.Equal(t, testPair.AccessToken, f.token())

	require.NoError(t, f.store.Clear())
	require.Empty(t, f.token())
}

func TestCloseLeavesCredentialsIntact(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), testLoginID, testPassword, "key1", "abcd"))

	f.manager.Close()

	require.GreaterOrEqual(t, f.channel.closeCount(), 1)
	require.True(t, f.manager.CheckAuth())
}
