package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/subtrack/internal/model"
)

type fakeProvider struct {
	mu sync.Mutex

	current    *model.Session
	currentErr error

	signInSess *model.Session
	signInErr  error

	signUpUser model.User
	signUpSess *model.Session
	signUpErr  error

	signOutErr error

	currentCalls int
	subscribes   int
	listeners    map[int]func(Event)
	next         int
}

var _ Provider = (*fakeProvider)(nil)

func (f *fakeProvider) SignUp(context.Context, string, string) (model.User, *model.Session, error) {
	return f.signUpUser, f.signUpSess, f.signUpErr
}
func (f *fakeProvider) SignIn(context.Context, string, string) (*model.Session, error) {
	return f.signInSess, f.signInErr
}
func (f *fakeProvider) SignOut(context.Context) error { return f.signOutErr }
func (f *fakeProvider) CurrentSession(context.Context) (*model.Session, error) {
	f.mu.Lock()
	f.currentCalls++
	f.mu.Unlock()
	return f.current, f.currentErr
}
func (f *fakeProvider) OnAuthStateChange(fn func(Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listeners == nil {
		f.listeners = map[int]func(Event){}
	}
	id := f.next
	f.next++
	f.subscribes++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}
func (f *fakeProvider) emit(ev Event) {
	f.mu.Lock()
	fns := make([]func(Event), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func sessFor(email string) *model.Session {
	return &model.Session{
		User:        model.User{ID: uuid.Must(uuid.NewV4()), Email: email, CreatedAt: time.Now()},
		AccessToken: "tok-" + email,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestInitialize_RestoresSession_Idempotent(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{current: sessFor("a@b.io")}
	m := NewManager(p, zaptest.NewLogger(t))
	require.Equal(t, StateUninitialized, m.State())

	require.NoError(t, m.Initialize(context.Background()))
	require.True(t, m.IsInitialized())
	require.True(t, m.IsAuthenticated())
	id, ok := m.UserID()
	require.True(t, ok)
	require.Equal(t, p.current.User.ID.String(), id)

	require.NoError(t, m.Initialize(context.Background()))
	require.Equal(t, 1, p.currentCalls)
	require.Equal(t, 1, p.subscribes)
}

func TestInitialize_NoSessionOrError(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeProvider{}, nil)
	require.NoError(t, m.Initialize(context.Background()))
	require.Equal(t, StateUnauthenticated, m.State())
	_, ok := m.UserID()
	require.False(t, ok)

	p := &fakeProvider{currentErr: errors.New("disk")}
	m = NewManager(p, zaptest.NewLogger(t))
	require.Error(t, m.Initialize(context.Background()))
	require.True(t, m.IsInitialized())
	require.Equal(t, StateUnauthenticated, m.State())
	require.NoError(t, m.Initialize(context.Background()))
	require.Equal(t, 1, p.currentCalls)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{signInErr: errors.New("bad credentials")}
	m := NewManager(p, zaptest.NewLogger(t))
	require.NoError(t, m.Initialize(context.Background()))

	err := m.Login(context.Background(), "a@b.io", "x")
	require.EqualError(t, err, "bad credentials")
	require.False(t, m.IsAuthenticated())
	require.False(t, m.IsLoading())

	p.signInErr = nil
	require.Error(t, m.Login(context.Background(), "a@b.io", "x"), "nil session is a failure")

	p.signInSess = sessFor("a@b.io")
	require.NoError(t, m.Login(context.Background(), "a@b.io", "x"))
	require.True(t, m.IsAuthenticated())
	s, ok := m.Session()
	require.True(t, ok)
	require.Equal(t, "tok-a@b.io", s.AccessToken)
}

func TestRegister_WithAndWithoutSession(t *testing.T) {
	t.Parallel()

	u := model.User{ID: uuid.Must(uuid.NewV4()), Email: "c@d.io"}
	p := &fakeProvider{signUpUser: u}
	m := NewManager(p, zaptest.NewLogger(t))
	require.NoError(t, m.Initialize(context.Background()))

	require.NoError(t, m.Register(context.Background(), "c@d.io", "password1"))
	require.False(t, m.IsAuthenticated())
	got, ok := m.User()
	require.True(t, ok)
	require.Equal(t, u.ID, got.ID)
	_, ok = m.UserID()
	require.False(t, ok, "unconfirmed account has no usable session")

	p.signUpSess = sessFor("c@d.io")
	require.NoError(t, m.Register(context.Background(), "c@d.io", "password1"))
	require.True(t, m.IsAuthenticated())

	p.signUpErr = errors.New("taken")
	require.Error(t, m.Register(context.Background(), "c@d.io", "password1"))
}

func TestLogout_ClearsEvenOnProviderError(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{current: sessFor("a@b.io"), signOutErr: errors.New("offline")}
	m := NewManager(p, zaptest.NewLogger(t))
	require.NoError(t, m.Initialize(context.Background()))
	require.True(t, m.IsAuthenticated())

	m.Logout(context.Background())
	require.Equal(t, StateUnauthenticated, m.State())
	_, ok := m.User()
	require.False(t, ok)
}

func TestAuthEvents_OnlyIdentityChangesApply(t *testing.T) {
	t.Parallel()

	first := sessFor("a@b.io")
	p := &fakeProvider{current: first}
	m := NewManager(p, zaptest.NewLogger(t))

	var snaps []Snapshot
	unsub := m.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })
	defer unsub()

	require.NoError(t, m.Initialize(context.Background()))
	require.Len(t, snaps, 1)

	// same user, refreshed token: ignored
	refreshed := *first
	refreshed.AccessToken = "new"
	p.emit(Event{Kind: EventTokenRefreshed, Session: &refreshed})
	require.Len(t, snaps, 1)
	s, _ := m.Session()
	require.Equal(t, first.AccessToken, s.AccessToken)

	// different user: applied
	other := sessFor("z@y.io")
	p.emit(Event{Kind: EventSignedIn, Session: other})
	require.Len(t, snaps, 2)
	u, _ := m.User()
	require.Equal(t, other.User.ID, u.ID)

	// external sign-out
	p.emit(Event{Kind: EventSignedOut})
	require.Len(t, snaps, 3)
	require.Equal(t, StateUnauthenticated, snaps[2].State)

	// sign-out again while already signed out: ignored
	p.emit(Event{Kind: EventSignedOut})
	require.Len(t, snaps, 3)

	m.Close()
	p.emit(Event{Kind: EventSignedIn, Session: first})
	require.Len(t, snaps, 3)
}

func TestIsTransitionAllowed(t *testing.T) {
	t.Parallel()

	require.True(t, IsTransitionAllowed(StateUninitialized, StateInitializing))
	require.True(t, IsTransitionAllowed(StateInitializing, StateAuthenticated))
	require.True(t, IsTransitionAllowed(StateAuthenticated, StateUnauthenticated))
	require.False(t, IsTransitionAllowed(StateAuthenticated, StateInitializing))
	require.False(t, IsTransitionAllowed(StateUnauthenticated, StateUninitialized))
	require.False(t, IsTransitionAllowed(StateInitializing, StateInitializing))
	require.False(t, IsTransitionAllowed("bogus", StateAuthenticated))
}
