package cloud

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	u "github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/subtrack/internal/cloudapi"
	"github.com/and161185/subtrack/internal/convert"
	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/kv"
	"github.com/and161185/subtrack/internal/model"
	"github.com/and161185/subtrack/internal/session"
)

const (
	testEmail = "a@b.io"
	testPass  = "password1"
	testToken = "tok-1"
)

type fakeCloud struct {
	cloudapi.UnimplementedCloudServer

	mu       sync.Mutex
	user     model.User
	rows     map[u.UUID]model.Subscription
	noExpiry bool
	lastAuth string
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		user: model.User{ID: u.Must(u.NewV4()), Email: testEmail, CreatedAt: time.Unix(1700000000, 0).UTC()},
		rows: map[u.UUID]model.Subscription{},
	}
}

func (f *fakeCloud) tokens() model.Tokens {
	if f.noExpiry {
		return model.Tokens{AccessToken: testToken}
	}
	return model.Tokens{AccessToken: testToken, ExpiresAt: time.Now().Add(time.Hour)}
}

func (f *fakeCloud) SignUp(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c := convert.FromCredentialsRequest(in)
	if c.Email == testEmail {
		return nil, status.Error(codes.AlreadyExists, "email taken")
	}
	return convert.AuthResponse(model.User{ID: u.Must(u.NewV4()), Email: c.Email}, f.tokens()), nil
}

func (f *fakeCloud) SignIn(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c := convert.FromCredentialsRequest(in)
	if c.Email != testEmail || c.Password != testPass {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return convert.AuthResponse(f.user, f.tokens()), nil
}

func (f *fakeCloud) check(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = ""
	if v := md.Get("authorization"); len(v) > 0 {
		f.lastAuth = v[0]
	}
	if f.lastAuth != "Bearer "+testToken {
		return status.Error(codes.Unauthenticated, "bad token")
	}
	return nil
}

func (f *fakeCloud) GetUser(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	return convert.UserResponse(f.user), nil
}

func (f *fakeCloud) InsertSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	uid, sub, err := convert.FromInsertRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id := u.Must(u.NewV4())
	sub.ID = model.RemoteID(id)
	sub.UserID = uid.String()
	f.mu.Lock()
	f.rows[id] = sub
	f.mu.Unlock()
	return convert.SubscriptionResponse(sub), nil
}

func (f *fakeCloud) UpdateSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	id, p, err := convert.FromUpdateRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, status.Error(codes.NotFound, "not found")
	}
	row = p.Apply(row)
	f.rows[id] = row
	return convert.SubscriptionResponse(row), nil
}

func (f *fakeCloud) DeleteSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	id, err := convert.FromIDRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return nil, status.Error(codes.NotFound, "not found")
	}
	delete(f.rows, id)
	return &structpb.Struct{}, nil
}

func (f *fakeCloud) ListSubscriptions(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Subscription, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return convert.SubscriptionsResponse(out), nil
}

func startClient(t *testing.T, srv *fakeCloud, store kv.Store, opts ...Option) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	cloudapi.RegisterCloudServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })
	return New(cloudapi.NewCloudClient(cc), store, zaptest.NewLogger(t), opts...)
}

func TestSignIn_PersistsSessionAndEmits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kv.NewMemory()
	c := startClient(t, newFakeCloud(), store)

	var events []session.EventKind
	unsub := c.OnAuthStateChange(func(ev session.Event) { events = append(events, ev.Kind) })

	sess, err := c.SignIn(ctx, testEmail, testPass)
	require.NoError(t, err)
	require.Equal(t, testToken, sess.AccessToken)
	require.Equal(t, []session.EventKind{session.EventSignedIn}, events)

	var stored model.Session
	found, err := kv.GetJSON(ctx, store, SessionKey, &stored)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, testEmail, stored.User.Email)

	// a second client over the same device store picks the session up
	c2 := startClient(t, newFakeCloud(), store)
	got, err := c2.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, testToken, got.AccessToken)

	require.NoError(t, c.SignOut(ctx))
	require.Equal(t, []session.EventKind{session.EventSignedIn, session.EventSignedOut}, events)
	_, err = store.Get(ctx, SessionKey)
	require.ErrorIs(t, err, errs.ErrNotFound)

	unsub()
	_, err = c.SignIn(ctx, testEmail, testPass)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestSignIn_BadCredentials(t *testing.T) {
	t.Parallel()
	c := startClient(t, newFakeCloud(), kv.NewMemory())

	_, err := c.SignIn(context.Background(), testEmail, "wrong-pass")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	s, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestSignUp(t *testing.T) {
	t.Parallel()
	c := startClient(t, newFakeCloud(), kv.NewMemory())

	usr, sess, err := c.SignUp(context.Background(), "new@b.io", testPass)
	require.NoError(t, err)
	require.Equal(t, "new@b.io", usr.Email)
	require.NotNil(t, sess)

	_, _, err = c.SignUp(context.Background(), testEmail, testPass)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestCurrentSession_ExpiredIsDropped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, kv.SetJSON(ctx, store, SessionKey, model.Session{
		AccessToken: testToken,
		ExpiresAt:   time.Now().Add(-time.Minute),
	}))
	c := startClient(t, newFakeCloud(), store)

	var signedOut bool
	c.OnAuthStateChange(func(ev session.Event) { signedOut = ev.Kind == session.EventSignedOut })

	s, err := c.CurrentSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
	require.True(t, signedOut)
	_, err = store.Get(ctx, SessionKey)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestWithExpiry_FromJWT(t *testing.T) {
	t.Parallel()
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("irrelevant-secret-key"))
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	c := New(nil, kv.NewMemory(), nil, WithClock(func() time.Time { return now }))

	s := c.withExpiry(&model.Session{AccessToken: tok})
	require.True(t, s.ExpiresAt.Equal(exp))

	s = c.withExpiry(&model.Session{AccessToken: "not-a-jwt"})
	require.True(t, s.ExpiresAt.Equal(now.Add(fallbackTTL)))
}

func TestCloudStore_CRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	srv := newFakeCloud()
	c := startClient(t, srv, kv.NewMemory())

	_, err := c.List(ctx, srv.user.ID.String())
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = c.SignIn(ctx, testEmail, testPass)
	require.NoError(t, err)

	row, err := c.Insert(ctx, model.Subscription{
		ID:          model.NewLocalID(),
		UserID:      srv.user.ID.String(),
		Name:        "Netflix",
		Price:       decimal.RequireFromString("15.99"),
		Currency:    model.USD,
		RenewalDate: model.Date{Year: 2025, Month: time.May, Day: 1},
		IsActive:    true,
	})
	require.NoError(t, err)
	require.Equal(t, model.NamespaceRemote, row.ID.Namespace())
	require.Equal(t, "Bearer "+testToken, srv.lastAuth)

	name := "Netflix 4K"
	upd, err := c.Update(ctx, row.ID, model.SubscriptionPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, upd.Name)

	list, err := c.List(ctx, srv.user.ID.String())
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.Delete(ctx, row.ID))
	require.ErrorIs(t, c.Delete(ctx, row.ID), errs.ErrNotFound)

	_, err = c.Update(ctx, model.DemoID("1"), model.SubscriptionPatch{Name: &name})
	require.ErrorIs(t, err, errs.ErrLocalRecord)
	require.ErrorIs(t, c.Delete(ctx, model.NewLocalID()), errs.ErrLocalRecord)

	usr, err := c.User(ctx)
	require.NoError(t, err)
	require.Equal(t, srv.user.ID, usr.ID)
}

func TestFromStatus(t *testing.T) {
	t.Parallel()
	cases := map[codes.Code]error{
		codes.NotFound:          errs.ErrNotFound,
		codes.AlreadyExists:     errs.ErrAlreadyExists,
		codes.InvalidArgument:   errs.ErrValidation,
		codes.Unauthenticated:   errs.ErrUnauthorized,
		codes.PermissionDenied:  errs.ErrUnauthorized,
		codes.ResourceExhausted: errs.ErrRateLimited,
	}
	for code, want := range cases {
		require.ErrorIs(t, fromStatus(status.Error(code, "x")), want, code.String())
	}
	plain := errors.New("boom")
	require.Equal(t, plain, fromStatus(plain))
	require.Nil(t, fromStatus(nil))
	require.ErrorContains(t, fromStatus(status.Error(codes.Unavailable, "down")), "Unavailable")
}

func TestDial(t *testing.T) {
	t.Parallel()
	_, err := Dial(DialConfig{})
	require.Error(t, err)

	cc, err := Dial(DialConfig{Addr: "localhost:1", Plaintext: true})
	require.NoError(t, err)
	require.NoError(t, cc.Close())

	_, err = Dial(DialConfig{Addr: "localhost:1", CACert: "/nonexistent/ca.pem"})
	require.Error(t, err)
}
