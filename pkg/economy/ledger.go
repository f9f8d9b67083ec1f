// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package economy keeps the progression state of one authenticated user and
// applies awards and purchases against the remote authority.
package economy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/catalog"
	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/AccelByte/extend-study-economy/pkg/metrics"
)

// DefaultBaseAward is the XP granted for one verified session without a boost.
const DefaultBaseAward = 50

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithBaseAward sets the XP granted for one verified session.
func WithBaseAward(xp int) Option {
	return func(l *Ledger) { l.baseAward = xp }
}

// WithNotifier sets where level-up, purchase and warning notices go.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// Ledger owns the derived economy state of one user. Mutations are serialized:
// purchases and equips are refused while another mutation runs, awards wait.
type Ledger struct {
	auth      authority.Authority
	catalog   *catalog.Catalog
	now       func() time.Time
	baseAward int
	notifier  Notifier

	mu    sync.RWMutex
	state State

	opMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSubID   int

	purchasers map[catalog.Kind]purchaseFunc
}

// NewLedger creates a ledger with an empty level 1 state. Call Refresh to load
// the user's profile.
func NewLedger(auth authority.Authority, c *catalog.Catalog, opts ...Option) *Ledger {
	l := &Ledger{
		auth:        auth,
		catalog:     c,
		now:         time.Now,
		baseAward:   DefaultBaseAward,
		notifier:    LogNotifier{},
		state:       initialState(),
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.purchasers = map[catalog.Kind]purchaseFunc{
		catalog.KindTheme:   l.buyTheme,
		catalog.KindBoost:   l.buyBoost,
		catalog.KindPowerUp: l.buyFreeze,
	}
	return l
}

// State returns a deep copy of the current state.
func (l *Ledger) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.clone()
}

// IsPremium reports whether the user is on a paid tier.
func (l *Ledger) IsPremium() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsPremium()
}

// IsBoostActive reports whether an XP boost is running right now.
func (l *Ledger) IsBoostActive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.BoostActiveAt(l.now())
}

// Catalog returns the store items this ledger sells.
func (l *Ledger) Catalog() *catalog.Catalog {
	return l.catalog
}

// Subscribe registers fn to receive a copy of the state after every change.
// The returned function removes the subscription.
func (l *Ledger) Subscribe(fn func(State)) func() {
	l.subMu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subscribers, id)
		l.subMu.Unlock()
	}
}

func (l *Ledger) publish() {
	snapshot := l.State()

	l.subMu.Lock()
	fns := make([]func(State), 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// Refresh reloads profile, inventory and badges and replaces the state
// wholesale. On error the previous state is kept.
func (l *Ledger) Refresh(ctx context.Context) error {
	scope := common.StartScope(ctx, "economy.Refresh")
	defer scope.Finish()

	if err := l.refresh(scope.Ctx); err != nil {
		scope.TraceError(err)
		scope.Log.Warnf("failed to refresh economy state: %v", err)
		return err
	}
	return nil
}

// refreshWithin reloads the state under a child span of scope.
func (l *Ledger) refreshWithin(scope *common.Scope) error {
	child := scope.NewChildScope("economy.refresh")
	defer child.Finish()

	if err := l.refresh(child.Ctx); err != nil {
		child.TraceError(err)
		return err
	}
	return nil
}

func (l *Ledger) refresh(ctx context.Context) error {
	profile, err := l.auth.FetchProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}
	inventory, err := l.auth.FetchInventory(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch inventory: %w", err)
	}
	badges, err := l.auth.FetchBadges(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch badges: %w", err)
	}

	next := stateFromRemote(profile, inventory, badges, l.now())

	l.mu.Lock()
	l.state = next
	l.mu.Unlock()

	l.publish()
	return nil
}

// Award describes the outcome of RecordStudySession.
type Award struct {
	Day       int
	XP        int
	Boosted   bool
	LeveledUp bool
	Level     int
	Persisted bool
}

// RecordStudySession grants the session award for day. The new totals are
// applied locally first; a failed write leaves them in place and surfaces a
// warning notice instead of an error. It waits for any in-flight mutation.
func (l *Ledger) RecordStudySession(ctx context.Context, day int) Award {
	scope := common.StartScope(ctx, "economy.RecordStudySession")
	defer scope.Finish()
	scope.SetAttributes("day", day)

	l.opMu.Lock()
	defer l.opMu.Unlock()

	l.mu.Lock()
	award := Award{Day: day, Boosted: l.state.BoostActiveAt(l.now())}
	award.XP = l.baseAward
	if award.Boosted {
		award.XP *= 2
	}

	newXP := l.state.Experience + award.XP
	newLevel := l.state.Level
	if newXP >= l.state.NextLevelAt() {
		newLevel++
		award.LeveledUp = true
	}
	award.Level = newLevel

	l.state.Experience = newXP
	l.state.Level = newLevel
	l.state.Projected = true
	l.mu.Unlock()

	l.publish()
	metrics.XPAwardedTotal.Add(float64(award.XP))
	scope.Log.Infof("awarded %d XP for day %d (boosted: %v, level: %d)", award.XP, day, award.Boosted, newLevel)

	if award.LeveledUp {
		scope.TraceEvent(fmt.Sprintf("level up to %d", newLevel))
		l.notifier.Notify(Notice{Kind: NoticeLevelUp, Message: fmt.Sprintf("Level up! You are now level %d", newLevel)})
	}

	err := l.auth.UpdateProfile(scope.Ctx, authority.ProfileUpdate{
		Experience: authority.Int(newXP),
		Level:      authority.Int(newLevel),
	})
	if err != nil {
		err = fmt.Errorf("%w: failed to save XP for day %d: %v", common.ErrPersistenceFailed, day, err)
		scope.TraceError(err)
		scope.Log.Warn(err)
		l.notifier.Notify(Notice{Kind: NoticeWarning, Message: common.UserMessage(err), Err: err})
		return award
	}
	award.Persisted = true

	if err := l.refreshWithin(scope); err != nil {
		scope.Log.Warnf("XP saved but refresh failed, keeping projected state: %v", err)
	}
	return award
}

// EquipTheme makes themeID the active theme. The change is applied
// optimistically after the authority accepts it.
func (l *Ledger) EquipTheme(ctx context.Context, themeID string) error {
	if !l.opMu.TryLock() {
		return common.ErrOperationInProgress
	}
	defer l.opMu.Unlock()

	scope := common.StartScope(ctx, "economy.EquipTheme")
	defer scope.Finish()
	scope.SetAttributes("theme", themeID)

	st := l.State()
	if themeID != DefaultTheme && !st.Owns(themeID) {
		return fmt.Errorf("equip %s: %w", themeID, common.ErrNotOwned)
	}

	if err := l.auth.UpdateProfile(scope.Ctx, authority.ProfileUpdate{ActiveTheme: authority.String(themeID)}); err != nil {
		scope.TraceError(err)
		scope.Log.Errorf("failed to equip theme %s: %v", themeID, err)
		return fmt.Errorf("failed to equip theme %s: %w", themeID, err)
	}

	l.mu.Lock()
	l.state.ActiveTheme = themeID
	l.state.Projected = true
	l.mu.Unlock()

	l.publish()
	return nil
}

// PurchaseSubscription moves the account to a paid tier and reloads the state.
func (l *Ledger) PurchaseSubscription(ctx context.Context, tier authority.Tier) error {
	if !tier.IsPaid() {
		return fmt.Errorf("subscribe to %q: %w", tier, common.ErrNotEligible)
	}
	if !l.opMu.TryLock() {
		return common.ErrOperationInProgress
	}
	defer l.opMu.Unlock()

	scope := common.StartScope(ctx, "economy.PurchaseSubscription")
	defer scope.Finish()
	scope.SetAttributes("tier", string(tier))

	if err := l.auth.UpdateProfile(scope.Ctx, authority.ProfileUpdate{Tier: authority.TierPtr(tier)}); err != nil {
		scope.TraceError(err)
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	if err := l.refreshWithin(scope); err != nil {
		return fmt.Errorf("%w: subscription updated but refresh failed: %v", common.ErrRemoteUnavailable, err)
	}

	l.notifier.Notify(Notice{Kind: NoticePurchase, Message: fmt.Sprintf("Welcome to Focus+ (%s)!", tier)})
	return nil
}
