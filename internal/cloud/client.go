// Package cloud is the client side of the Cloud service. Client is both the
// authentication provider of the session manager and the remote table of the
// subscription store.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"

	"github.com/and161185/subtrack/internal/cloudapi"
	"github.com/and161185/subtrack/internal/convert"
	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/kv"
	"github.com/and161185/subtrack/internal/model"
	"github.com/and161185/subtrack/internal/session"
	"github.com/and161185/subtrack/internal/subscriptions"
)

// SessionKey is the device-store key of the persisted session.
const SessionKey = "auth-session"

// fallbackTTL is used when neither the response nor the token carries an expiry.
const fallbackTTL = 15 * time.Minute

var (
	_ session.Provider         = (*Client)(nil)
	_ subscriptions.CloudStore = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// Client talks to the Cloud service and keeps the session on the device.
type Client struct {
	api   cloudapi.CloudClient
	store kv.Store
	log   *zap.Logger
	now   func() time.Time

	mu        sync.Mutex
	sess      *model.Session
	loaded    bool
	listeners map[int]func(session.Event)
	nextID    int
}

// New builds a Client. store persists the session between runs.
func New(api cloudapi.CloudClient, store kv.Store, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{api: api, store: store, log: log, now: time.Now, listeners: map[int]func(session.Event){}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---- session.Provider ----

// SignUp creates an account. The server signs the new user in directly, so
// the session is normally non-nil.
func (c *Client) SignUp(ctx context.Context, email, password string) (model.User, *model.Session, error) {
	resp, err := c.api.SignUp(ctx, convert.CredentialsRequest(model.Credentials{Email: email, Password: password}))
	if err != nil {
		return model.User{}, nil, fromStatus(err)
	}
	usr, sess, err := convert.FromAuthResponse(resp)
	if err != nil {
		return model.User{}, nil, fmt.Errorf("sign up: %w", err)
	}
	if sess != nil {
		if err := c.setSession(ctx, c.withExpiry(sess)); err != nil {
			return usr, nil, err
		}
		c.emit(session.Event{Kind: session.EventSignedIn, Session: sess})
	}
	return usr, sess, nil
}

// SignIn authenticates and persists the session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	resp, err := c.api.SignIn(ctx, convert.CredentialsRequest(model.Credentials{Email: email, Password: password}))
	if err != nil {
		return nil, fromStatus(err)
	}
	_, sess, err := convert.FromAuthResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if sess == nil {
		return nil, errors.New("sign in: no token issued")
	}
	sess = c.withExpiry(sess)
	if err := c.setSession(ctx, sess); err != nil {
		return nil, err
	}
	c.emit(session.Event{Kind: session.EventSignedIn, Session: sess})
	return sess, nil
}

// SignOut forgets the session. Tokens are stateless, so the server is not called.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.setSession(ctx, nil)
	c.emit(session.Event{Kind: session.EventSignedOut})
	return err
}

// CurrentSession returns the persisted session. An expired session is
// dropped and reported as signed out.
func (c *Client) CurrentSession(ctx context.Context) (*model.Session, error) {
	c.mu.Lock()
	if !c.loaded {
		var s model.Session
		found, err := kv.GetJSON(ctx, c.store, SessionKey, &s)
		if err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("load session: %w", err)
		}
		if found && s.AccessToken != "" {
			c.sess = &s
		}
		c.loaded = true
	}
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		return nil, nil
	}
	if sess.Expired(c.now()) {
		c.log.Info("session expired", zap.String("user_id", sess.User.ID.String()))
		if err := c.setSession(ctx, nil); err != nil {
			c.log.Warn("drop expired session", zap.Error(err))
		}
		c.emit(session.Event{Kind: session.EventSignedOut})
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

// OnAuthStateChange registers fn for sign-in and sign-out notifications.
func (c *Client) OnAuthStateChange(fn func(session.Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// User fetches the profile of the signed-in user.
func (c *Client) User(ctx context.Context) (model.User, error) {
	actx, sess, err := c.authed(ctx)
	if err != nil {
		return model.User{}, err
	}
	resp, err := c.api.GetUser(actx, convert.UserIDRequest(sess.User.ID.String()))
	if err != nil {
		return model.User{}, fromStatus(err)
	}
	return convert.FromUserResponse(resp)
}

func (c *Client) emit(ev session.Event) {
	c.mu.Lock()
	fns := make([]func(session.Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Client) setSession(ctx context.Context, sess *model.Session) error {
	c.mu.Lock()
	c.sess = sess
	c.loaded = true
	c.mu.Unlock()
	if sess == nil {
		if err := c.store.Delete(ctx, SessionKey); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	}
	if err := kv.SetJSON(ctx, c.store, SessionKey, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// withExpiry fills a missing expiry from the token's exp claim.
func (c *Client) withExpiry(sess *model.Session) *model.Session {
	if !sess.ExpiresAt.IsZero() {
		return sess
	}
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseUnverified(sess.AccessToken, &claims)
	if err == nil && claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	} else {
		sess.ExpiresAt = c.now().Add(fallbackTTL)
	}
	return sess
}

// authed attaches the bearer token of the current session.
func (c *Client) authed(ctx context.Context) (context.Context, *model.Session, error) {
	sess, err := c.CurrentSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, errs.ErrUnauthenticated
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+sess.AccessToken), sess, nil
}

// ---- subscriptions.CloudStore ----

// Insert uploads sub and returns the server row.
func (c *Client) Insert(ctx context.Context, sub model.Subscription) (model.Subscription, error) {
	actx, _, err := c.authed(ctx)
	if err != nil {
		return model.Subscription{}, err
	}
	resp, err := c.api.InsertSubscription(actx, convert.InsertRequest(sub.UserID, sub))
	if err != nil {
		return model.Subscription{}, fromStatus(err)
	}
	return convert.FromSubscriptionResponse(resp)
}

// Update patches a remote row.
func (c *Client) Update(ctx context.Context, id model.SubscriptionID, patch model.SubscriptionPatch) (model.Subscription, error) {
	if id.IsLocal() {
		return model.Subscription{}, errs.ErrLocalRecord
	}
	actx, _, err := c.authed(ctx)
	if err != nil {
		return model.Subscription{}, err
	}
	resp, err := c.api.UpdateSubscription(actx, convert.UpdateRequest(id, patch))
	if err != nil {
		return model.Subscription{}, fromStatus(err)
	}
	return convert.FromSubscriptionResponse(resp)
}

// Delete removes a remote row.
func (c *Client) Delete(ctx context.Context, id model.SubscriptionID) error {
	if id.IsLocal() {
		return errs.ErrLocalRecord
	}
	actx, _, err := c.authed(ctx)
	if err != nil {
		return err
	}
	if _, err := c.api.DeleteSubscription(actx, convert.IDRequest(id)); err != nil {
		return fromStatus(err)
	}
	return nil
}

// List returns every row of userID ordered by renewal date.
func (c *Client) List(ctx context.Context, userID string) ([]model.Subscription, error) {
	actx, _, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.api.ListSubscriptions(actx, convert.UserIDRequest(userID))
	if err != nil {
		return nil, fromStatus(err)
	}
	return convert.FromSubscriptionsResponse(resp)
}
