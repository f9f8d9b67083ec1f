// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/catalog"
	"github.com/AccelByte/extend-study-economy/pkg/economy"
	"github.com/spf13/cobra"
)

func newProfileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show level, coins and inventory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := connect(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()

			printProfile(cmd.OutOrStdout(), c.ledger.State(), time.Now())
			return nil
		},
	}
}

func printProfile(w io.Writer, st economy.State, now time.Time) {
	_, _ = fmt.Fprintf(w, "tier:      %s\n", st.Tier)
	_, _ = fmt.Fprintf(w, "level:     %d (%d/%d XP, %.0f%%)\n", st.Level, st.Experience, st.NextLevelAt(), st.LevelProgress()*100)
	_, _ = fmt.Fprintf(w, "coins:     %d\n", st.Coins)
	_, _ = fmt.Fprintf(w, "freezes:   %d\n", st.StreakFreezes)
	_, _ = fmt.Fprintf(w, "theme:     %s\n", st.ActiveTheme)
	if st.BoostActiveAt(now) {
		_, _ = fmt.Fprintf(w, "xp boost:  active for %s\n", st.XPBoostExpiresAt.Sub(now).Round(time.Minute))
	}
	if ids := st.InventoryIDs(); len(ids) > 0 {
		sort.Strings(ids)
		_, _ = fmt.Fprintf(w, "inventory: %s\n", strings.Join(ids, ", "))
	}
	if len(st.Badges) > 0 {
		_, _ = fmt.Fprintf(w, "badges:    %s\n", strings.Join(st.Badges, ", "))
	}
}

func newStoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "store",
		Short: "List catalog items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := connect(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()

			st := c.ledger.State()
			for _, item := range c.ledger.Catalog().Items() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-16s %5d  %-28s %s\n", item.ID, item.Cost, item.Name, itemNote(item, st))
			}
			return nil
		},
	}
}

func itemNote(item catalog.Item, st economy.State) string {
	switch {
	case item.ComingSoon:
		return "coming soon"
	case item.Kind == catalog.KindTheme && st.Owns(item.ID):
		return "owned"
	case item.PremiumOnly && !st.IsPremium():
		return "premium"
	case st.Coins < item.Cost:
		return "not enough coins"
	}
	return ""
}

func newBuyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item>",
		Short: "Buy a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.ledger.Purchase(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "coins left: %d\n", c.ledger.State().Coins)
			return nil
		},
	}
}

func newEquipCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "equip <theme>",
		Short: "Make an owned theme active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.ledger.EquipTheme(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "active theme: %s\n", c.ledger.State().ActiveTheme)
			return nil
		},
	}
}

func newSubscribeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <monthly|yearly>",
		Short: "Switch to a paid tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := authority.ParseTier(args[0])
			if err != nil {
				return err
			}

			c, err := connect(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()

			return c.ledger.PurchaseSubscription(cmd.Context(), tier)
		},
	}
}
