package cloud

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/subtrack/internal/errs"
)

// fromStatus maps a gRPC status onto the shared sentinels so callers can use
// errors.Is regardless of transport.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = errs.ErrNotFound
	case codes.AlreadyExists:
		sentinel = errs.ErrAlreadyExists
	case codes.InvalidArgument:
		sentinel = errs.ErrValidation
	case codes.Unauthenticated, codes.PermissionDenied:
		sentinel = errs.ErrUnauthorized
	case codes.ResourceExhausted:
		sentinel = errs.ErrRateLimited
	default:
		return fmt.Errorf("cloud: %s: %s", st.Code(), st.Message())
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}
