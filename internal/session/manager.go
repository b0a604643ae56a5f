// Package session owns the authenticated identity of the client.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/subtrack/internal/model"
)

// Snapshot is a copy of the Manager state handed to listeners.
type Snapshot struct {
	State       State
	User        *model.User
	Session     *model.Session
	Initialized bool
}

// Manager tracks login state on top of a Provider.
// All methods are safe for concurrent use; provider calls run outside the lock.
type Manager struct {
	provider Provider
	log      *zap.Logger

	mu          sync.RWMutex
	state       State
	user        *model.User
	session     *model.Session
	loading     bool
	initialized bool
	listening   bool
	unsubscribe func()

	listeners map[int]func(Snapshot)
	nextID    int
}

// NewManager constructs a Manager in the uninitialized state.
func NewManager(p Provider, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		provider:  p,
		log:       log,
		state:     StateUninitialized,
		listeners: map[int]func(Snapshot){},
	}
}

// Initialize restores a persisted session and starts listening for provider
// events. A second call is a no-op. A provider error leaves the manager
// initialized and unauthenticated; the error is returned for logging.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized || m.state == StateInitializing {
		m.mu.Unlock()
		return nil
	}
	m.setStateLocked(StateInitializing)
	m.mu.Unlock()

	sess, err := m.provider.CurrentSession(ctx)

	m.mu.Lock()
	m.initialized = true
	switch {
	case m.state != StateInitializing:
		// a login or logout finished first and already resolved the state
	case err == nil && sess != nil:
		m.setSessionLocked(sess)
	default:
		m.clearLocked()
	}
	attach := !m.listening
	m.listening = true
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if attach {
		unsub := m.provider.OnAuthStateChange(m.handleEvent)
		m.mu.Lock()
		m.unsubscribe = unsub
		m.mu.Unlock()
	}
	m.notify(snap)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

// Login signs in with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.setLoading(true)
	sess, err := m.provider.SignIn(ctx, email, password)
	if err == nil && sess == nil {
		err = errors.New("login failed")
	}
	if err != nil {
		m.setLoading(false)
		return err
	}

	m.mu.Lock()
	m.loading = false
	m.setSessionLocked(sess)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// Register creates an account. The manager becomes authenticated only when
// the provider returned a session.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	m.setLoading(true)
	u, sess, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		m.setLoading(false)
		return err
	}

	m.mu.Lock()
	m.loading = false
	if sess != nil {
		m.setSessionLocked(sess)
	} else {
		usr := u
		m.user = &usr
		m.session = nil
		m.setStateLocked(StateUnauthenticated)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// Logout signs out. Local state is cleared even if the provider call fails;
// that error is logged, not returned.
func (m *Manager) Logout(ctx context.Context) {
	m.setLoading(true)
	if err := m.provider.SignOut(ctx); err != nil {
		m.log.Warn("sign out failed, clearing session anyway", zap.Error(err))
	}

	m.mu.Lock()
	m.loading = false
	m.clearLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

// Close detaches from the provider.
func (m *Manager) Close() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.listening = false
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// handleEvent applies a provider notification when the identity actually changed.
func (m *Manager) handleEvent(ev Event) {
	m.mu.Lock()
	var newUser *model.User
	if ev.Session != nil {
		newUser = &ev.Session.User
	}
	changed := false
	switch {
	case newUser == nil && m.user != nil:
		m.clearLocked()
		changed = true
	case newUser != nil && (m.user == nil || m.user.ID != newUser.ID):
		m.setSessionLocked(ev.Session)
		changed = true
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Debug("auth state changed", zap.String("event", string(ev.Kind)), zap.Bool("applied", changed))
	if changed {
		m.notify(snap)
	}
}

// Subscribe registers fn for state changes and returns a function that removes it.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns a copy of the current user, if any.
func (m *Manager) User() (model.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return model.User{}, false
	}
	return *m.user, true
}

// Session returns a copy of the current session, if any.
func (m *Manager) Session() (model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return model.Session{}, false
	}
	return *m.session, true
}

// UserID returns the id of the authenticated user.
func (m *Manager) UserID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated || m.user == nil {
		return "", false
	}
	return m.user.ID.String(), true
}

// IsAuthenticated reports whether a session is held.
func (m *Manager) IsAuthenticated() bool { return m.State() == StateAuthenticated }

// IsInitialized reports whether Initialize has completed.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// IsLoading reports whether a login, register or logout is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

func (m *Manager) setSessionLocked(s *model.Session) {
	cp := *s
	u := cp.User
	m.session = &cp
	m.user = &u
	m.setStateLocked(StateAuthenticated)
}

func (m *Manager) clearLocked() {
	m.user = nil
	m.session = nil
	m.setStateLocked(StateUnauthenticated)
}

func (m *Manager) setStateLocked(to State) {
	if !IsTransitionAllowed(m.state, to) {
		m.log.Warn("unexpected session transition", zap.String("from", string(m.state)), zap.String("to", string(to)))
	}
	m.state = to
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{State: m.state, Initialized: m.initialized}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	if m.session != nil {
		sess := *m.session
		s.Session = &sess
	}
	return s
}

func (m *Manager) notify(s Snapshot) {
	m.mu.RLock()
	fns := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(s)
	}
}
