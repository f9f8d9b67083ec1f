// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package grpcauth

import (
	"context"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/AccelByte/extend-study-economy/pkg/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type authorityServer interface {
	authorityFor(ctx context.Context) (authority.Authority, string, error)
}

// Server serves the authority operations of a Provider.
type Server struct {
	provider authority.Provider
}

// NewServer creates a gRPC authority server.
func NewServer(provider authority.Provider) *Server {
	return &Server{provider: provider}
}

func (s *Server) authorityFor(ctx context.Context) (authority.Authority, string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	users := md.Get(UserMetadataKey)
	if len(users) == 0 || users[0] == "" {
		return nil, "", status.Errorf(codes.Unauthenticated, "missing %s metadata", UserMetadataKey)
	}
	return s.provider.ForUser(users[0]), users[0], nil
}

// Register adds the authority service to registrar.
func (s *Server) Register(registrar grpc.ServiceRegistrar) {
	registrar.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*authorityServer)(nil),
		Methods: []grpc.MethodDesc{
			unary(s, methodStartStudySession, func(ctx context.Context, a authority.Authority, in *StartStudySessionRequest) (*StartStudySessionResponse, error) {
				token, err := a.StartStudySession(ctx, in.DurationMinutes)
				if err != nil {
					return nil, err
				}
				return &StartStudySessionResponse{SessionID: token}, nil
			}),
			unary(s, methodCompleteStudySession, func(ctx context.Context, a authority.Authority, in *CompleteStudySessionRequest) (*Result, error) {
				ok, err := a.CompleteStudySession(ctx, in.SessionID, in.DayIndex)
				if err != nil {
					return nil, err
				}
				return &Result{Success: ok}, nil
			}),
			unary(s, methodPurchaseThemeItem, func(ctx context.Context, a authority.Authority, in *PurchaseThemeItemRequest) (*Result, error) {
				ok, err := a.PurchaseThemeItem(ctx, in.ItemID, in.Cost)
				if err != nil {
					return nil, err
				}
				return &Result{Success: ok}, nil
			}),
			unary(s, methodActivateXpBoost, func(ctx context.Context, a authority.Authority, in *ActivateXpBoostRequest) (*Result, error) {
				ok, err := a.ActivateXpBoost(ctx, in.DurationHours, in.Cost)
				if err != nil {
					return nil, err
				}
				return &Result{Success: ok}, nil
			}),
			unary(s, methodFetchProfile, func(ctx context.Context, a authority.Authority, _ *Empty) (*ProfileResponse, error) {
				p, err := a.FetchProfile(ctx)
				if err != nil {
					return nil, err
				}
				return &ProfileResponse{Profile: *p}, nil
			}),
			unary(s, methodFetchInventory, func(ctx context.Context, a authority.Authority, _ *Empty) (*IDsResponse, error) {
				ids, err := a.FetchInventory(ctx)
				if err != nil {
					return nil, err
				}
				return &IDsResponse{IDs: ids}, nil
			}),
			unary(s, methodFetchBadges, func(ctx context.Context, a authority.Authority, _ *Empty) (*IDsResponse, error) {
				ids, err := a.FetchBadges(ctx)
				if err != nil {
					return nil, err
				}
				return &IDsResponse{IDs: ids}, nil
			}),
			unary(s, methodUpdateProfile, func(ctx context.Context, a authority.Authority, in *UpdateProfileRequest) (*Empty, error) {
				if err := a.UpdateProfile(ctx, in.Update); err != nil {
					return nil, err
				}
				return &Empty{}, nil
			}),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "focus/authority/v1/authority.proto",
	}, s)
}

// unary builds a method descriptor that decodes Req, resolves the calling
// user and records the request duration.
func unary[Req, Resp any](s *Server, name string, call func(context.Context, authority.Authority, *Req) (*Resp, error)) grpc.MethodDesc {
	full := fullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				r, ok := req.(*Req)
				if !ok {
					return nil, status.Error(codes.Internal, "invalid request type")
				}
				return s.invoke(ctx, name, func(ctx context.Context, a authority.Authority) (any, error) {
					return call(ctx, a, r)
				})
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func (s *Server) invoke(ctx context.Context, op string, fn func(context.Context, authority.Authority) (any, error)) (any, error) {
	scope := common.StartScope(ctx, "authority."+op)
	defer scope.Finish()

	start := time.Now()
	resp, err := func() (any, error) {
		a, userID, err := s.authorityFor(scope.Ctx)
		if err != nil {
			return nil, err
		}
		scope.SetAttributes("user.id", userID)
		return fn(scope.Ctx, a)
	}()
	metrics.AuthorityRequestDuration.WithLabelValues(op, metrics.Result(err)).Observe(time.Since(start).Seconds())

	if err != nil {
		scope.TraceError(err)
		scope.Log.Warnf("%s failed: %v", op, err)
		return nil, toStatus(err)
	}
	return resp, nil
}
