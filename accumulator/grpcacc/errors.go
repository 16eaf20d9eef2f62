package grpcacc

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/sas/accumulator"
)

var statusCodes = []struct {
	err  error
	code codes.Code
}{
	{accumulator.ErrLeafNotFound, codes.NotFound},
	{accumulator.ErrAddressExists, codes.AlreadyExists},
	{accumulator.ErrStaleRoot, codes.Aborted},
	{accumulator.ErrInvalidProof, codes.FailedPrecondition},
	{accumulator.ErrLeafMismatch, codes.FailedPrecondition},
	{accumulator.ErrWrongTree, codes.InvalidArgument},
	{accumulator.ErrInvalidTransition, codes.InvalidArgument},
	{ErrMalformed, codes.InvalidArgument},
	{accumulator.ErrUnavailable, codes.Unavailable},
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return status.Error(sc.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// mapRPC restores the accumulator sentinel from the status message, keeping
// the server's detail text.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	for _, sc := range statusCodes {
		prefix := sc.err.Error()
		if !strings.HasPrefix(msg, prefix) {
			continue
		}
		if rest := strings.TrimPrefix(strings.TrimPrefix(msg, prefix), ": "); rest != "" {
			return fmt.Errorf("%w: %s", sc.err, rest)
		}
		return sc.err
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", accumulator.ErrUnavailable, msg)
	default:
		return err
	}
}
