// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package economy

import (
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
)

const (
	// DefaultTheme is always equippable and never appears in the inventory.
	DefaultTheme = "default"

	// XPPerLevel scales the experience threshold of each level.
	XPPerLevel = 100
)

// State is the user's progression as last reconciled with the authority,
// possibly overlaid by optimistic local changes (Projected).
type State struct {
	Experience       int
	Level            int
	Coins            int
	StreakFreezes    int
	Tier             authority.Tier
	Inventory        map[string]struct{}
	ActiveTheme      string
	XPBoostExpiresAt *time.Time
	Badges           []string

	// Projected is set while the state holds a local change not yet confirmed by a refresh.
	Projected   bool
	RefreshedAt time.Time
}

func initialState() State {
	return State{
		Level:       1,
		Tier:        authority.TierFree,
		Inventory:   map[string]struct{}{},
		ActiveTheme: DefaultTheme,
	}
}

// IsPremium reports whether the tier is a paid one.
func (s State) IsPremium() bool {
	return s.Tier.IsPaid()
}

// Owns reports whether itemID is in the inventory.
func (s State) Owns(itemID string) bool {
	_, ok := s.Inventory[itemID]
	return ok
}

// BoostActiveAt reports whether the XP boost is still running at now.
func (s State) BoostActiveAt(now time.Time) bool {
	return s.XPBoostExpiresAt != nil && s.XPBoostExpiresAt.After(now)
}

// NextLevelAt is the experience total that triggers the next level-up.
func (s State) NextLevelAt() int {
	return s.Level * XPPerLevel
}

// LevelProgress is the fraction of the next level threshold reached, capped at 1.
func (s State) LevelProgress() float64 {
	threshold := s.NextLevelAt()
	if threshold <= 0 {
		return 0
	}
	p := float64(s.Experience) / float64(threshold)
	if p > 1 {
		return 1
	}
	return p
}

// InventoryIDs returns the owned item ids in no particular order.
func (s State) InventoryIDs() []string {
	ids := make([]string, 0, len(s.Inventory))
	for id := range s.Inventory {
		ids = append(ids, id)
	}
	return ids
}

func (s State) clone() State {
	c := s
	c.Inventory = make(map[string]struct{}, len(s.Inventory))
	for id := range s.Inventory {
		c.Inventory[id] = struct{}{}
	}
	if s.XPBoostExpiresAt != nil {
		t := *s.XPBoostExpiresAt
		c.XPBoostExpiresAt = &t
	}
	c.Badges = append([]string(nil), s.Badges...)
	return c
}

func stateFromRemote(p *authority.Profile, inventory, badges []string, now time.Time) State {
	s := State{
		Experience:    p.Experience,
		Level:         p.Level,
		Coins:         p.Coins,
		StreakFreezes: p.StreakFreezes,
		Tier:          p.Tier,
		Inventory:     make(map[string]struct{}, len(inventory)),
		ActiveTheme:   p.ActiveTheme,
		Badges:        append([]string(nil), badges...),
		RefreshedAt:   now,
	}
	if s.Level < 1 {
		s.Level = 1
	}
	if s.Tier == "" {
		s.Tier = authority.TierFree
	}
	for _, id := range inventory {
		s.Inventory[id] = struct{}{}
	}
	if p.XPBoostExpiresAt != nil {
		t := *p.XPBoostExpiresAt
		s.XPBoostExpiresAt = &t
	}
	if s.ActiveTheme == "" || (s.ActiveTheme != DefaultTheme && !s.Owns(s.ActiveTheme)) {
		s.ActiveTheme = DefaultTheme
	}
	return s
}
