// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package grpcauth exposes an authority.Provider over gRPC and implements
// authority.Authority as a gRPC client. Messages are JSON encoded.
package grpcauth

import (
	"encoding/json"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"google.golang.org/grpc/encoding"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "focus.authority.v1.Authority"

	// UserMetadataKey carries the id of the user a call acts for.
	UserMetadataKey = "x-focus-user"

	jsonCodecName = "json"
)

const (
	methodStartStudySession    = "StartStudySession"
	methodCompleteStudySession = "CompleteStudySession"
	methodPurchaseThemeItem    = "PurchaseThemeItem"
	methodActivateXpBoost      = "ActivateXpBoost"
	methodFetchProfile         = "FetchProfile"
	methodFetchInventory       = "FetchInventory"
	methodFetchBadges          = "FetchBadges"
	methodUpdateProfile        = "UpdateProfile"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type StartStudySessionRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

type StartStudySessionResponse struct {
	SessionID string `json:"session_id"`
}

type CompleteStudySessionRequest struct {
	SessionID string `json:"session_id"`
	DayIndex  int    `json:"day_index"`
}

type PurchaseThemeItemRequest struct {
	ItemID string `json:"item_id"`
	Cost   int    `json:"cost"`
}

type ActivateXpBoostRequest struct {
	DurationHours int `json:"duration_hours"`
	Cost          int `json:"cost"`
}

// Result is the boolean outcome of a verification or purchase.
type Result struct {
	Success bool `json:"success"`
}

type ProfileResponse struct {
	Profile authority.Profile `json:"profile"`
}

type IDsResponse struct {
	IDs []string `json:"ids"`
}

type UpdateProfileRequest struct {
	Update authority.ProfileUpdate `json:"update"`
}
