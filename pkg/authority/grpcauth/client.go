// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package grpcauth

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// DefaultCallTimeout bounds each remote call when no timeout is configured.
const DefaultCallTimeout = 15 * time.Second

// Client reaches a remote authority server.
type Client struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
}

// Dial opens an insecure connection to an authority server at target.
func Dial(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authority client for %s: %w", target, err)
	}
	return conn, nil
}

// NewClient wraps conn. Every call is bounded by timeout.
func NewClient(conn grpc.ClientConnInterface, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Client{conn: conn, timeout: timeout}
}

// ForUser returns an Authority acting on behalf of userID.
func (c *Client) ForUser(userID string) authority.Authority {
	return &userClient{client: c, userID: userID}
}

type userClient struct {
	client *Client
	userID string
}

func (u *userClient) invoke(ctx context.Context, method string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, u.client.timeout)
	defer cancel()

	ctx = metadata.AppendToOutgoingContext(ctx, UserMetadataKey, u.userID)
	if err := u.client.conn.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return fromStatus(method, err)
	}
	return nil
}

func (u *userClient) StartStudySession(ctx context.Context, durationMinutes int) (string, error) {
	out := &StartStudySessionResponse{}
	if err := u.invoke(ctx, methodStartStudySession, &StartStudySessionRequest{DurationMinutes: durationMinutes}, out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

func (u *userClient) CompleteStudySession(ctx context.Context, token string, dayIndex int) (bool, error) {
	out := &Result{}
	if err := u.invoke(ctx, methodCompleteStudySession, &CompleteStudySessionRequest{SessionID: token, DayIndex: dayIndex}, out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (u *userClient) PurchaseThemeItem(ctx context.Context, itemID string, cost int) (bool, error) {
	out := &Result{}
	if err := u.invoke(ctx, methodPurchaseThemeItem, &PurchaseThemeItemRequest{ItemID: itemID, Cost: cost}, out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (u *userClient) ActivateXpBoost(ctx context.Context, durationHours, cost int) (bool, error) {
	out := &Result{}
	if err := u.invoke(ctx, methodActivateXpBoost, &ActivateXpBoostRequest{DurationHours: durationHours, Cost: cost}, out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (u *userClient) FetchProfile(ctx context.Context) (*authority.Profile, error) {
	out := &ProfileResponse{}
	if err := u.invoke(ctx, methodFetchProfile, &Empty{}, out); err != nil {
		return nil, err
	}
	return &out.Profile, nil
}

func (u *userClient) FetchInventory(ctx context.Context) ([]string, error) {
	out := &IDsResponse{}
	if err := u.invoke(ctx, methodFetchInventory, &Empty{}, out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

func (u *userClient) FetchBadges(ctx context.Context) ([]string, error) {
	out := &IDsResponse{}
	if err := u.invoke(ctx, methodFetchBadges, &Empty{}, out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

func (u *userClient) UpdateProfile(ctx context.Context, update authority.ProfileUpdate) error {
	return u.invoke(ctx, methodUpdateProfile, &UpdateProfileRequest{Update: update}, &Empty{})
}

var _ authority.Provider = (*Client)(nil)
