// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package mock

import (
	"context"
	"sync"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
)

// Authority is a call-tracking implementation of authority.Authority for tests.
// Each method uses its Func field when set, the Default values otherwise.
type Authority struct {
	StartStudySessionFunc    func(ctx context.Context, durationMinutes int) (string, error)
	CompleteStudySessionFunc func(ctx context.Context, token string, dayIndex int) (bool, error)
	PurchaseThemeItemFunc    func(ctx context.Context, itemID string, cost int) (bool, error)
	ActivateXpBoostFunc      func(ctx context.Context, durationHours, cost int) (bool, error)
	FetchProfileFunc         func(ctx context.Context) (*authority.Profile, error)
	FetchInventoryFunc       func(ctx context.Context) ([]string, error)
	FetchBadgesFunc          func(ctx context.Context) ([]string, error)
	UpdateProfileFunc        func(ctx context.Context, update authority.ProfileUpdate) error

	// Default data
	DefaultToken     string
	DefaultVerified  bool
	DefaultPurchased bool
	DefaultProfile   authority.Profile
	DefaultInventory []string
	DefaultBadges    []string
	DefaultError     error

	mu sync.Mutex

	// Call tracking
	StartStudySessionCalls    []StartStudySessionCall
	CompleteStudySessionCalls []CompleteStudySessionCall
	PurchaseThemeItemCalls    []PurchaseThemeItemCall
	ActivateXpBoostCalls      []ActivateXpBoostCall
	FetchProfileCalls         int
	FetchInventoryCalls       int
	FetchBadgesCalls          int
	UpdateProfileCalls        []authority.ProfileUpdate
}

// StartStudySessionCall tracks parameters for StartStudySession calls
type StartStudySessionCall struct {
	DurationMinutes int
}

// CompleteStudySessionCall tracks parameters for CompleteStudySession calls
type CompleteStudySessionCall struct {
	Token    string
	DayIndex int
}

// PurchaseThemeItemCall tracks parameters for PurchaseThemeItem calls
type PurchaseThemeItemCall struct {
	ItemID string
	Cost   int
}

// ActivateXpBoostCall tracks parameters for ActivateXpBoost calls
type ActivateXpBoostCall struct {
	DurationHours int
	Cost          int
}

// NewAuthority creates a mock that accepts everything for a free level 1 user.
func NewAuthority() *Authority {
	return &Authority{
		DefaultToken:     "session-token",
		DefaultVerified:  true,
		DefaultPurchased: true,
		DefaultProfile: authority.Profile{
			Tier:        authority.TierFree,
			Level:       1,
			ActiveTheme: "default",
		},
	}
}

// RemoteCalls counts every call except reads, for asserting that a guard
// short-circuited before reaching the remote.
func (m *Authority) RemoteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StartStudySessionCalls) + len(m.CompleteStudySessionCalls) +
		len(m.PurchaseThemeItemCalls) + len(m.ActivateXpBoostCalls) + len(m.UpdateProfileCalls)
}

// Updates returns a copy of the UpdateProfile calls seen so far.
func (m *Authority) Updates() []authority.ProfileUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]authority.ProfileUpdate(nil), m.UpdateProfileCalls...)
}

// StartStudySession opens a session
func (m *Authority) StartStudySession(ctx context.Context, durationMinutes int) (string, error) {
	m.mu.Lock()
	m.StartStudySessionCalls = append(m.StartStudySessionCalls, StartStudySessionCall{DurationMinutes: durationMinutes})
	m.mu.Unlock()

	if m.StartStudySessionFunc != nil {
		return m.StartStudySessionFunc(ctx, durationMinutes)
	}
	if m.DefaultError != nil {
		return "", m.DefaultError
	}
	return m.DefaultToken, nil
}

// CompleteStudySession verifies a session
func (m *Authority) CompleteStudySession(ctx context.Context, token string, dayIndex int) (bool, error) {
	m.mu.Lock()
	m.CompleteStudySessionCalls = append(m.CompleteStudySessionCalls, CompleteStudySessionCall{Token: token, DayIndex: dayIndex})
	m.mu.Unlock()

	if m.CompleteStudySessionFunc != nil {
		return m.CompleteStudySessionFunc(ctx, token, dayIndex)
	}
	if m.DefaultError != nil {
		return false, m.DefaultError
	}
	return m.DefaultVerified, nil
}

// PurchaseThemeItem buys a theme
func (m *Authority) PurchaseThemeItem(ctx context.Context, itemID string, cost int) (bool, error) {
	m.mu.Lock()
	m.PurchaseThemeItemCalls = append(m.PurchaseThemeItemCalls, PurchaseThemeItemCall{ItemID: itemID, Cost: cost})
	m.mu.Unlock()

	if m.PurchaseThemeItemFunc != nil {
		return m.PurchaseThemeItemFunc(ctx, itemID, cost)
	}
	if m.DefaultError != nil {
		return false, m.DefaultError
	}
	return m.DefaultPurchased, nil
}

// ActivateXpBoost buys a boost
func (m *Authority) ActivateXpBoost(ctx context.Context, durationHours, cost int) (bool, error) {
	m.mu.Lock()
	m.ActivateXpBoostCalls = append(m.ActivateXpBoostCalls, ActivateXpBoostCall{DurationHours: durationHours, Cost: cost})
	m.mu.Unlock()

	if m.ActivateXpBoostFunc != nil {
		return m.ActivateXpBoostFunc(ctx, durationHours, cost)
	}
	if m.DefaultError != nil {
		return false, m.DefaultError
	}
	return m.DefaultPurchased, nil
}

// FetchProfile reads the profile
func (m *Authority) FetchProfile(ctx context.Context) (*authority.Profile, error) {
	m.mu.Lock()
	m.FetchProfileCalls++
	m.mu.Unlock()

	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	p := m.DefaultProfile
	return &p, nil
}

// FetchInventory reads owned item ids
func (m *Authority) FetchInventory(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	m.FetchInventoryCalls++
	m.mu.Unlock()

	if m.FetchInventoryFunc != nil {
		return m.FetchInventoryFunc(ctx)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return append([]string(nil), m.DefaultInventory...), nil
}

// FetchBadges reads earned badge ids
func (m *Authority) FetchBadges(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	m.FetchBadgesCalls++
	m.mu.Unlock()

	if m.FetchBadgesFunc != nil {
		return m.FetchBadgesFunc(ctx)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return append([]string(nil), m.DefaultBadges...), nil
}

// UpdateProfile writes a partial profile
func (m *Authority) UpdateProfile(ctx context.Context, update authority.ProfileUpdate) error {
	m.mu.Lock()
	m.UpdateProfileCalls = append(m.UpdateProfileCalls, update)
	m.mu.Unlock()

	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, update)
	}
	return m.DefaultError
}

var _ authority.Authority = (*Authority)(nil)
