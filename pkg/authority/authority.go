// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package authority

import (
	"context"
	"fmt"
	"time"
)

// Authority is the trusted remote that verifies sessions, executes purchases
// atomically and stores the profile. Every call acts on behalf of the user the
// implementation was created for.
type Authority interface {
	// StartStudySession opens a server-side session and returns its token.
	StartStudySession(ctx context.Context, durationMinutes int) (string, error)

	// CompleteStudySession reports completion; false means the elapsed time did not add up.
	CompleteStudySession(ctx context.Context, token string, dayIndex int) (bool, error)

	// PurchaseThemeItem debits cost and grants itemID atomically.
	PurchaseThemeItem(ctx context.Context, itemID string, cost int) (bool, error)

	// ActivateXpBoost debits cost and extends the XP boost atomically.
	ActivateXpBoost(ctx context.Context, durationHours, cost int) (bool, error)

	FetchProfile(ctx context.Context) (*Profile, error)
	FetchInventory(ctx context.Context) ([]string, error)
	FetchBadges(ctx context.Context) ([]string, error)

	// UpdateProfile writes the non-nil fields of update.
	UpdateProfile(ctx context.Context, update ProfileUpdate) error
}

// Provider hands out an Authority scoped to one user.
type Provider interface {
	ForUser(userID string) Authority
}

// Tier is the subscription level of an account.
type Tier string

const (
	TierFree    Tier = "free"
	TierMonthly Tier = "monthly"
	TierYearly  Tier = "yearly"
)

// IsPaid reports whether the tier unlocks premium features.
func (t Tier) IsPaid() bool {
	return t == TierMonthly || t == TierYearly
}

// ParseTier validates a tier name. Empty input maps to TierFree.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case "", TierFree:
		return TierFree, nil
	case TierMonthly, TierYearly:
		return Tier(s), nil
	default:
		return "", fmt.Errorf("unknown subscription tier %q", s)
	}
}

// Profile is the persisted progression record of a user.
type Profile struct {
	Tier             Tier       `json:"subscription_tier"`
	Coins            int        `json:"coins"`
	StreakFreezes    int        `json:"streak_freeze_count"`
	Experience       int        `json:"exp_points"`
	Level            int        `json:"level"`
	ActiveTheme      string     `json:"active_theme"`
	XPBoostExpiresAt *time.Time `json:"xp_boost_expires_at,omitempty"`
}

// ProfileUpdate is a partial profile write; nil fields are left untouched.
type ProfileUpdate struct {
	Experience    *int    `json:"exp_points,omitempty"`
	Level         *int    `json:"level,omitempty"`
	Coins         *int    `json:"coins,omitempty"`
	StreakFreezes *int    `json:"streak_freeze_count,omitempty"`
	ActiveTheme   *string `json:"active_theme,omitempty"`
	Tier          *Tier   `json:"subscription_tier,omitempty"`
}

// IsEmpty reports whether the update carries no field.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Experience == nil && u.Level == nil && u.Coins == nil &&
		u.StreakFreezes == nil && u.ActiveTheme == nil && u.Tier == nil
}

// Int returns a pointer to v, for building a ProfileUpdate.
func Int(v int) *int {
	return &v
}

// String returns a pointer to v, for building a ProfileUpdate.
func String(v string) *string {
	return &v
}

// TierPtr returns a pointer to v, for building a ProfileUpdate.
func TierPtr(v Tier) *Tier {
	return &v
}
