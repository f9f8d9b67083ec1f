// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package catalog

import (
	"fmt"
	"sort"
)

// Kind classifies how a store item is fulfilled.
type Kind string

const (
	KindPowerUp Kind = "powerup"
	KindTheme   Kind = "theme"
	KindSound   Kind = "sound"
	KindBoost   Kind = "boost"
)

// DefaultMinutesPerCoin is the study-time earn rate used when the catalog omits one.
const DefaultMinutesPerCoin = 5

// Item is one entry of the store.
type Item struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description,omitempty"`
	Cost          int    `yaml:"cost"`
	Kind          Kind   `yaml:"kind"`
	PremiumOnly   bool   `yaml:"premium_only,omitempty"`
	DurationHours int    `yaml:"duration_hours,omitempty"`
	ComingSoon    bool   `yaml:"coming_soon,omitempty"`
}

// Rewards configures what a verified study session earns on the authority side.
type Rewards struct {
	MinutesPerCoin int `yaml:"minutes_per_coin"`
}

// Catalog is the immutable set of purchasable items.
type Catalog struct {
	Rewards Rewards `yaml:"rewards"`
	Entries []Item  `yaml:"items"`

	byID map[string]Item
}

// New builds a catalog from items and validates it.
func New(items ...Item) (*Catalog, error) {
	c := &Catalog{
		Rewards: Rewards{MinutesPerCoin: DefaultMinutesPerCoin},
		Entries: items,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the stock store offering.
func Default() *Catalog {
	c, err := New(
		Item{ID: "freeze_1", Name: "Streak Freeze", Description: "Protect your streak for one missed day.", Cost: 50, Kind: KindPowerUp},
		Item{ID: "theme_gold", Name: "Golden Theme", Description: "A luxurious gold finish for your grid.", Cost: 500, Kind: KindTheme, PremiumOnly: true},
		Item{ID: "sound_pack_rain", Name: "Rainy Day Sounds", Description: "Ambient rain while you study.", Cost: 200, Kind: KindSound, ComingSoon: true},
		Item{ID: "xp_boost_1h", Name: "XP Boost (1h)", Description: "Double XP for one hour.", Cost: 150, Kind: KindBoost, DurationHours: 1},
	)
	if err != nil {
		panic(fmt.Sprintf("default catalog is invalid: %v", err))
	}
	return c
}

// Get returns the item with the given id.
func (c *Catalog) Get(id string) (Item, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Items returns all items ordered by cost, then id.
func (c *Catalog) Items() []Item {
	items := append([]Item(nil), c.Entries...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Cost != items[j].Cost {
			return items[i].Cost < items[j].Cost
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// Validate checks the catalog for common errors and builds the id index.
func (c *Catalog) Validate() error {
	if c.Rewards.MinutesPerCoin == 0 {
		c.Rewards.MinutesPerCoin = DefaultMinutesPerCoin
	}
	if c.Rewards.MinutesPerCoin < 0 {
		return fmt.Errorf("rewards.minutes_per_coin must be positive, got %d", c.Rewards.MinutesPerCoin)
	}

	byID := make(map[string]Item, len(c.Entries))
	for _, item := range c.Entries {
		if item.ID == "" {
			return fmt.Errorf("item with empty ID found")
		}
		if _, dup := byID[item.ID]; dup {
			return fmt.Errorf("duplicate item ID: %s", item.ID)
		}
		if item.Cost <= 0 {
			return fmt.Errorf("item %s has non-positive cost %d", item.ID, item.Cost)
		}

		switch item.Kind {
		case KindPowerUp, KindTheme, KindSound:
		case KindBoost:
			if item.DurationHours <= 0 {
				return fmt.Errorf("boost item %s needs a positive duration_hours", item.ID)
			}
		default:
			return fmt.Errorf("item %s has unknown kind %q", item.ID, item.Kind)
		}

		byID[item.ID] = item
	}

	c.byID = byID
	return nil
}
