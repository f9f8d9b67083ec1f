// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "wrapped sentinel",
			err:      fmt.Errorf("purchase theme_gold: %w", ErrInsufficientFunds),
			expected: "Not enough coins!",
		},
		{
			name:     "remote error message wins",
			err:      NewRemoteError("start_study_session", "duration exceeds plan limit", ErrNotEligible),
			expected: "duration exceeds plan limit",
		},
		{
			name:     "unavailable",
			err:      Unavailable("fetch_profile", errors.New("connection refused")),
			expected: "Could not reach the server. Please try again.",
		},
		{
			name:     "unknown error falls back to text",
			err:      errors.New("boom"),
			expected: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestRemoteError_Unwrap(t *testing.T) {
	err := fmt.Errorf("buy: %w", NewRemoteError("purchase_theme", "declined", ErrAlreadyOwned))

	if !errors.Is(err, ErrAlreadyOwned) {
		t.Error("expected RemoteError to unwrap to ErrAlreadyOwned")
	}

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatal("expected errors.As to find RemoteError")
	}
	if remote.Op != "purchase_theme" {
		t.Errorf("Op = %s, expected purchase_theme", remote.Op)
	}
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("complete_study_session", errors.New("i/o timeout"))
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("expected %v to match ErrRemoteUnavailable", err)
	}
}
