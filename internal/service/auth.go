// Package service contains application services for authentication and subscriptions.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/subtrack/internal/crypto"
	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/limiter"
	"github.com/and161185/subtrack/internal/model"
	"github.com/and161185/subtrack/internal/repository"
	"github.com/and161185/subtrack/internal/validate"
)

// AuthService defines account and token operations.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, email, password string) (model.User, error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, email, password string, ip string) (tokens model.Tokens, user model.User, err error)
	// IssueToken signs a fresh access token for userID.
	IssueToken(userID uuid.UUID) (model.Tokens, error)
	// GetUser loads the public profile of a user.
	GetUser(ctx context.Context, userID uuid.UUID) (model.User, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	hash      pkgcrypto.Params
	now       func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, hash: pkgcrypto.DefaultParams, now: time.Now}
}

// Register creates a new user record.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Credentials(model.Credentials{Email: email, Password: password}); err != nil {
		return model.User{}, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.User{}, err
	}
	hash, err := pkgcrypto.Hash(password, s.hash)
	if err != nil {
		return model.User{}, err
	}

	u := &model.User{ID: uid, Email: email, PwdHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return model.User{}, err
	}
	return publicUser(*u), nil
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		// a malformed stored hash counts as a failed attempt
		if ok, _ := pkgcrypto.Verify(password, u.PwdHash); !ok {
			err = errs.ErrUnauthorized
		}
	}
	if err != nil {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// unknown email and wrong password look the same
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)
	s.upgradeHash(ctx, u, password)

	tok, err := s.IssueToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, publicUser(*u), nil
}

// IssueToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) IssueToken(userID uuid.UUID) (model.Tokens, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

// GetUser loads a user by id.
func (s *AuthServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	return publicUser(*u), nil
}

// upgradeHash re-encodes the password of u when its hash was made with older
// cost settings. Failure keeps the old hash, which still verifies.
func (s *AuthServiceImpl) upgradeHash(ctx context.Context, u *model.User, password string) {
	if !pkgcrypto.NeedsRehash(u.PwdHash, s.hash) {
		return
	}
	hash, err := pkgcrypto.Hash(password, s.hash)
	if err != nil {
		return
	}
	_ = s.users.UpdatePasswordHash(ctx, u.ID, hash)
}

func publicUser(u model.User) model.User {
	u.PwdHash = ""
	return u
}
