// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/catalog"
	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/AccelByte/extend-study-economy/pkg/metrics"
)

// purchaseFunc executes one accepted purchase against the authority.
type purchaseFunc func(ctx context.Context, item catalog.Item, st State) error

// Purchase buys itemID. Local guards run first and never reach the authority;
// a successful purchase is followed by a refresh before returning.
func (l *Ledger) Purchase(ctx context.Context, itemID string) error {
	if !l.opMu.TryLock() {
		return common.ErrOperationInProgress
	}
	defer l.opMu.Unlock()

	scope := common.StartScope(ctx, "economy.Purchase")
	defer scope.Finish()
	scope.SetAttributes("item", itemID)

	item, ok := l.catalog.Get(itemID)
	if !ok {
		return fmt.Errorf("purchase %s: %w", itemID, common.ErrUnknownItem)
	}

	st := l.State()
	if err := l.checkEligible(item, st); err != nil {
		metrics.PurchasesTotal.WithLabelValues(string(item.Kind), "refused").Inc()
		scope.TraceEvent("refused: " + err.Error())
		scope.Log.Infof("purchase of %s refused: %v", itemID, err)
		return fmt.Errorf("purchase %s: %w", itemID, err)
	}

	buy := l.purchasers[item.Kind]
	if err := buy(scope.Ctx, item, st); err != nil {
		result := "error"
		var remote *common.RemoteError
		if errors.As(err, &remote) {
			result = "rejected"
		}
		metrics.PurchasesTotal.WithLabelValues(string(item.Kind), result).Inc()
		scope.TraceError(err)
		scope.Log.Warnf("purchase of %s failed: %v", itemID, err)
		return fmt.Errorf("purchase %s: %w", itemID, err)
	}
	metrics.PurchasesTotal.WithLabelValues(string(item.Kind), "ok").Inc()
	scope.Log.Infof("purchased %s for %d coins", itemID, item.Cost)

	if err := l.refreshWithin(scope); err != nil {
		scope.Log.Warnf("purchase of %s succeeded but refresh failed: %v", itemID, err)
		return fmt.Errorf("%w: %s purchased but state refresh failed: %v", common.ErrRemoteUnavailable, itemID, err)
	}

	l.notifier.Notify(Notice{Kind: NoticePurchase, Message: fmt.Sprintf("Purchased %s!", item.Name)})
	return nil
}

// checkEligible applies the local guards in a fixed order.
func (l *Ledger) checkEligible(item catalog.Item, st State) error {
	if item.PremiumOnly && !st.IsPremium() {
		return common.ErrPremiumRequired
	}
	if item.Cost > st.Coins {
		return common.ErrInsufficientFunds
	}
	if item.Kind == catalog.KindTheme && st.Owns(item.ID) {
		return common.ErrAlreadyOwned
	}
	if item.Kind == catalog.KindBoost && st.BoostActiveAt(l.now()) {
		return fmt.Errorf("%w: a boost is already active", common.ErrNotEligible)
	}
	if _, ok := l.purchasers[item.Kind]; !ok || item.ComingSoon {
		return fmt.Errorf("%w: %s items are not for sale yet", common.ErrNotEligible, item.Kind)
	}
	return nil
}

func (l *Ledger) buyTheme(ctx context.Context, item catalog.Item, _ State) error {
	ok, err := l.auth.PurchaseThemeItem(ctx, item.ID, item.Cost)
	if err != nil {
		return fmt.Errorf("failed to purchase theme: %w", err)
	}
	if !ok {
		return common.NewRemoteError("purchase_theme", "Purchase failed (Funds? Already Owned?)", common.ErrNotEligible)
	}
	return nil
}

func (l *Ledger) buyBoost(ctx context.Context, item catalog.Item, _ State) error {
	ok, err := l.auth.ActivateXpBoost(ctx, item.DurationHours, item.Cost)
	if err != nil {
		return fmt.Errorf("failed to activate XP boost: %w", err)
	}
	if !ok {
		return common.NewRemoteError("activate_xp_boost", "Insufficient coins!", common.ErrInsufficientFunds)
	}
	return nil
}

func (l *Ledger) buyFreeze(ctx context.Context, item catalog.Item, st State) error {
	err := l.auth.UpdateProfile(ctx, authority.ProfileUpdate{
		Coins:         authority.Int(st.Coins - item.Cost),
		StreakFreezes: authority.Int(st.StreakFreezes + 1),
	})
	if err != nil {
		return fmt.Errorf("failed to buy streak freeze: %w", err)
	}
	return nil
}
