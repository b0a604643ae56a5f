package session

import (
	"context"

	"github.com/and161185/subtrack/internal/model"
)

// EventKind names an auth-state notification.
type EventKind string

// Provider notifications.
const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is pushed by a Provider when its session changes. Session is nil
// after sign-out or expiry.
type Event struct {
	Kind    EventKind
	Session *model.Session
}

// Provider is the external authentication service.
type Provider interface {
	// SignUp creates an account. The session is nil when the provider
	// requires confirmation before the first sign-in.
	SignUp(ctx context.Context, email, password string) (model.User, *model.Session, error)
	// SignIn authenticates and returns a fresh session.
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	// SignOut drops the current session.
	SignOut(ctx context.Context) error
	// CurrentSession returns the persisted session, or nil.
	CurrentSession(ctx context.Context) (*model.Session, error)
	// OnAuthStateChange registers fn and returns a function that removes it.
	OnAuthStateChange(fn func(Event)) (unsubscribe func())
}
