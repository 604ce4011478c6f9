package grpc

import (
	"errors"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to status codes. The already-verified case
// keeps its fixed message so clients can tell it from other conflicts.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrAlreadyVerified):
		return status.Error(codes.AlreadyExists, common.AlreadyVerifiedReason)
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrInvalidProof):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, common.ErrDecryptionFailure):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
