// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationRejected indicates a session duration outside what the account may use.
	ErrConfigurationRejected = errors.New("configuration rejected")

	// ErrRemoteUnavailable indicates a network or transport failure talking to the authority.
	ErrRemoteUnavailable = errors.New("remote authority unavailable")

	// ErrVerificationFailed indicates the authority found the elapsed time insufficient.
	ErrVerificationFailed = errors.New("session verification failed")

	// ErrInsufficientFunds indicates the coin balance does not cover the item cost.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPremiumRequired indicates the item or feature is reserved for paid tiers.
	ErrPremiumRequired = errors.New("premium required")

	// ErrAlreadyOwned indicates the item is already in the inventory.
	ErrAlreadyOwned = errors.New("item already owned")

	// ErrNotEligible indicates the authority or the ledger declined the purchase.
	ErrNotEligible = errors.New("not eligible")

	// ErrPersistenceFailed indicates a write was applied locally but could not be stored.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrNotOwned indicates an attempt to equip an item missing from the inventory.
	ErrNotOwned = errors.New("item not owned")

	// ErrOperationInProgress indicates another mutating operation is still in flight.
	ErrOperationInProgress = errors.New("operation already in progress")

	// ErrInvalidState indicates an operation that the current lifecycle state does not allow.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrUnknownItem indicates an item id missing from the catalog.
	ErrUnknownItem = errors.New("unknown item")
)

// RemoteError carries a rejection message produced by the remote authority.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: remote error", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError builds a RemoteError, optionally wrapping one of the sentinels above.
func NewRemoteError(op, message string, err error) *RemoteError {
	return &RemoteError{Op: op, Message: message, Err: err}
}

// Unavailable wraps a transport failure so callers can match ErrRemoteUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrRemoteUnavailable, err)
}

var userMessages = []struct {
	err error
	msg string
}{
	{ErrConfigurationRejected, "That duration is not available for your plan."},
	{ErrRemoteUnavailable, "Could not reach the server. Please try again."},
	{ErrVerificationFailed, "Session failed verification: time discrepancy detected."},
	{ErrInsufficientFunds, "Not enough coins!"},
	{ErrPremiumRequired, "This item is reserved for Focus+ members!"},
	{ErrAlreadyOwned, "You already own this item."},
	{ErrNotOwned, "You do not own this item yet."},
	{ErrOperationInProgress, "Please wait for the current purchase to finish."},
	{ErrPersistenceFailed, "Progress saved locally; it will sync later."},
	{ErrUnknownItem, "That item is not in the store."},
}

// UserMessage returns a human readable reason for err, suitable for a notification.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return err.Error()
}
