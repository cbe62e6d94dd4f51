package inspect

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/minesim/internal/sim/state"
	"github.com/signalsfoundry/minesim/kb"
)

// ErrInvalidArgument marks malformed requests.
var ErrInvalidArgument = errors.New("invalid argument")

// ToStatusError maps world errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, state.ErrEntityNotFound),
		errors.Is(err, kb.ErrEntityNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, kb.ErrOutOfBounds):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrOccupied),
		errors.Is(err, kb.ErrEntityExists):
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
