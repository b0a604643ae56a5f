// Package grpcserver exposes the Cloud gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/subtrack/internal/cloudapi"
	"github.com/and161185/subtrack/internal/convert"
	"github.com/and161185/subtrack/internal/errs"
	"github.com/and161185/subtrack/internal/service"
)

var _ cloudapi.CloudServer = (*Server)(nil)

// Server wires services into gRPC handlers.
type Server struct {
	cloudapi.UnimplementedCloudServer
	auth    service.AuthService
	subs    service.SubscriptionService
	signKey []byte
}

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, subs service.SubscriptionService, signKey []byte) *Server {
	return &Server{auth: auth, subs: subs, signKey: signKey}
}

// PublicMethods are the full method names callable without a token.
func PublicMethods() []string {
	return []string{
		cloudapi.FullMethod(cloudapi.MethodSignUp),
		cloudapi.FullMethod(cloudapi.MethodSignIn),
	}
}

// --- Auth ---

// SignUp creates an account and signs it in.
func (s *Server) SignUp(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c := convert.FromCredentialsRequest(in)
	if c.Email == "" || c.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty email/password")
	}
	u, err := s.auth.Register(ctx, c.Email, c.Password)
	if err != nil {
		return nil, toStatus("sign up", err)
	}
	tok, err := s.auth.IssueToken(u.ID)
	if err != nil {
		return nil, toStatus("issue token", err)
	}
	return convert.AuthResponse(u, tok), nil
}

func remoteIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// SignIn authenticates a user and returns an access token.
func (s *Server) SignIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c := convert.FromCredentialsRequest(in)
	tok, u, err := s.auth.LoginWithIP(ctx, c.Email, c.Password, remoteIP(ctx))
	if err != nil {
		return nil, toStatus("sign in", err)
	}
	return convert.AuthResponse(u, tok), nil
}

// GetUser returns the profile of the caller.
func (s *Server) GetUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if reqID, perr := convert.FromUserIDRequest(in); perr == nil {
		if err := c.owns(reqID); err != nil {
			return nil, err
		}
	}
	u, err := s.auth.GetUser(ctx, c.UserID)
	if err != nil {
		return nil, toStatus("get user", err)
	}
	return convert.UserResponse(u), nil
}

// --- Subscriptions ---

// InsertSubscription stores a new row for the caller.
func (s *Server) InsertSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	reqID, sub, err := convert.FromInsertRequest(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad subscription: %v", err)
	}
	if err := c.owns(reqID); err != nil {
		return nil, err
	}
	row, err := s.subs.Create(ctx, c.UserID, sub)
	if err != nil {
		return nil, toStatus("insert", err)
	}
	return convert.SubscriptionResponse(row), nil
}

// UpdateSubscription patches a row of the caller.
func (s *Server) UpdateSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	id, patch, err := convert.FromUpdateRequest(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad update: %v", err)
	}
	row, err := s.subs.Update(ctx, c.UserID, id, patch)
	if err != nil {
		return nil, toStatus("update", err)
	}
	return convert.SubscriptionResponse(row), nil
}

// DeleteSubscription removes a row of the caller.
func (s *Server) DeleteSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.FromIDRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	if err := s.subs.Delete(ctx, c.UserID, id); err != nil {
		return nil, toStatus("delete", err)
	}
	return &structpb.Struct{}, nil
}

// ListSubscriptions returns every row of the caller ordered by renewal date.
func (s *Server) ListSubscriptions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	reqID, err := convert.FromUserIDRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad user_id")
	}
	if err := c.owns(reqID); err != nil {
		return nil, err
	}
	rows, err := s.subs.List(ctx, c.UserID)
	if err != nil {
		return nil, toStatus("list", err)
	}
	return convert.SubscriptionsResponse(rows), nil
}

// caller returns the identity set by AuthUnary, or verifies the token itself
// when the interceptor is not installed.
func (s *Server) caller(ctx context.Context) (Caller, error) {
	if c, ok := CallerFromCtx(ctx); ok {
		return c, nil
	}
	c, err := callerFromToken(ctx, s.signKey)
	if err != nil {
		return Caller{}, status.Error(codes.Unauthenticated, "no auth")
	}
	return c, nil
}

// toStatus maps service errors onto gRPC codes. Unknown errors are not echoed.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "bad credentials")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, op+": canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, op+": deadline exceeded")
	default:
		return status.Error(codes.Internal, op+": internal error")
	}
}
