package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
)

// toStatus maps a use case error onto a gRPC status. Unclassified errors are
// logged and surface as Internal without their text.
func toStatus(logger *slog.Logger, method string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, valueobject.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, valueobject.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, valueobject.ErrIllegalTransition):
		code = codes.FailedPrecondition
	case errors.Is(err, valueobject.ErrIntegrityViolation),
		errors.Is(err, valueobject.ErrConcurrentModification):
		code = codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		logger.Error("lending call failed", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
