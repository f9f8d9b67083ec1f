// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package grpcauth

import (
	"errors"

	"github.com/AccelByte/extend-study-economy/pkg/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var statusCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrRemoteUnavailable, codes.Unavailable},
	{common.ErrNotEligible, codes.FailedPrecondition},
	{common.ErrNotOwned, codes.NotFound},
	{common.ErrUnknownItem, codes.InvalidArgument},
	{common.ErrOperationInProgress, codes.Aborted},
	{common.ErrInsufficientFunds, codes.ResourceExhausted},
	{common.ErrPremiumRequired, codes.PermissionDenied},
	{common.ErrAlreadyOwned, codes.AlreadyExists},
}

// toStatus converts an authority error into a gRPC status error.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	msg := err.Error()
	var remote *common.RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		msg = remote.Message
	}

	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return status.Error(sc.code, msg)
		}
	}
	return status.Error(codes.Internal, msg)
}

// fromStatus converts a gRPC error back into the error taxonomy.
func fromStatus(op string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return common.Unavailable(op, err)
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return common.Unavailable(op, err)
	}

	var sentinel error
	for _, sc := range statusCodes {
		if sc.code == st.Code() {
			sentinel = sc.err
			break
		}
	}
	return common.NewRemoteError(op, st.Message(), sentinel)
}
