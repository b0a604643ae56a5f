package grpcserver

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Caller is the verified identity behind a request: the token subject and
// the moment the token stops being accepted.
type Caller struct {
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// owns rejects requests that name a user_id other than the caller's own.
func (c Caller) owns(reqID uuid.UUID) error {
	if reqID != c.UserID {
		return status.Error(codes.PermissionDenied, "user_id does not match token")
	}
	return nil
}

type callerKey struct{}

// WithCaller stores the authenticated caller in ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromCtx returns the caller stored by AuthUnary.
func CallerFromCtx(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	if !ok || c.UserID == uuid.Nil {
		return Caller{}, false
	}
	return c, true
}
