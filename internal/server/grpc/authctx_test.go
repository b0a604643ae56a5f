package grpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWithCaller_And_CallerFromCtx(t *testing.T) {
	t.Parallel()

	if _, ok := CallerFromCtx(context.Background()); ok {
		t.Fatalf("expected no caller in empty ctx")
	}

	want := Caller{UserID: uuid.Must(uuid.NewV4()), ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second)}
	got, ok := CallerFromCtx(WithCaller(context.Background(), want))
	if !ok {
		t.Fatalf("expected caller in ctx")
	}
	if got != want {
		t.Fatalf("mismatch: got %+v, want %+v", got, want)
	}

	if _, ok := CallerFromCtx(WithCaller(context.Background(), Caller{})); ok {
		t.Fatalf("a caller without subject must not count")
	}
}

func TestCaller_Owns(t *testing.T) {
	t.Parallel()

	c := Caller{UserID: uuid.Must(uuid.NewV4())}
	if err := c.owns(c.UserID); err != nil {
		t.Fatalf("own id rejected: %v", err)
	}
	if err := c.owns(uuid.Must(uuid.NewV4())); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("want PermissionDenied, got %v", err)
	}
	if err := c.owns(uuid.Nil); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("want PermissionDenied for empty id, got %v", err)
	}
}
