// Package model defines domain entities shared by the client stores, the cloud
// backend and the transport layer.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access/refresh tokens (refresh optional).
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry
}

// User represents an account. Client code only sees ID, Email and CreatedAt.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	PwdHash   string    `json:"-"` // argon2id PHC string
	CreatedAt time.Time `json:"created_at"`
}

// Session is an authenticated identity as seen by the client.
type Session struct {
	User        User      `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the access token is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credentials are the sign-up / sign-in form fields.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"-" validate:"required,min=8,max=128"`
}
