// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package redisauth is a Redis-backed reference implementation of the study
// authority. Balance-changing operations run as Lua scripts so a debit and its
// grant are applied atomically.
package redisauth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/catalog"
	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/AccelByte/extend-study-economy/pkg/habit"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix = "focus:"

	// DefaultTolerance is the clock skew accepted when verifying a session.
	DefaultTolerance = 5 * time.Second
	// DefaultSessionGrace keeps an abandoned session around after its planned end.
	DefaultSessionGrace = time.Hour

	freeMaxMinutes = 60
	paidMaxMinutes = 120
)

const (
	fieldTier          = "subscription_tier"
	fieldCoins         = "coins"
	fieldFreezes       = "streak_freeze_count"
	fieldExperience    = "exp_points"
	fieldLevel         = "level"
	fieldActiveTheme   = "active_theme"
	fieldBoostExpires  = "xp_boost_expires_at"
	defaultActiveTheme = "default"
)

// Config configures a Store.
type Config struct {
	Catalog      *catalog.Catalog
	Tolerance    time.Duration
	SessionGrace time.Duration
	Now          func() time.Time
}

// Store keeps profiles, inventories and sessions of every user in Redis.
type Store struct {
	client redis.UniversalClient
	cfg    Config
}

// NewStore creates a Redis-backed authority store.
func NewStore(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.SessionGrace <= 0 {
		cfg.SessionGrace = DefaultSessionGrace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{client: client, cfg: cfg}
}

// ForUser returns an Authority acting on behalf of userID.
func (s *Store) ForUser(userID string) authority.Authority {
	return &userAuthority{store: s, userID: userID}
}

func profileKey(userID string) string   { return keyPrefix + "profile:" + userID }
func inventoryKey(userID string) string { return keyPrefix + "inventory:" + userID }
func badgesKey(userID string) string    { return keyPrefix + "badges:" + userID }
func sessionKey(token string) string    { return keyPrefix + "session:" + token }

func studyLogKey(userID string, year int) string {
	return fmt.Sprintf("%sstudylog:%s:%d", keyPrefix, userID, year)
}

// SeedProfile overwrites the profile and inventory of userID.
func (s *Store) SeedProfile(ctx context.Context, userID string, p authority.Profile, inventory ...string) error {
	var boostExpires int64
	if p.XPBoostExpiresAt != nil {
		boostExpires = p.XPBoostExpiresAt.Unix()
	}
	fields := map[string]interface{}{
		fieldTier:         string(p.Tier),
		fieldCoins:        p.Coins,
		fieldFreezes:      p.StreakFreezes,
		fieldExperience:   p.Experience,
		fieldLevel:        p.Level,
		fieldActiveTheme:  p.ActiveTheme,
		fieldBoostExpires: boostExpires,
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, profileKey(userID), inventoryKey(userID))
		pipe.HSet(ctx, profileKey(userID), fields)
		if len(inventory) > 0 {
			members := make([]interface{}, len(inventory))
			for i, id := range inventory {
				members[i] = id
			}
			pipe.SAdd(ctx, inventoryKey(userID), members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed profile for user %s: %w", userID, err)
	}
	return nil
}

// StudiedDays returns the day indexes of year with a verified session.
func (s *Store) StudiedDays(ctx context.Context, userID string, year int) ([]int, error) {
	members, err := s.client.SMembers(ctx, studyLogKey(userID, year)).Result()
	if err != nil {
		return nil, common.Unavailable("studied_days", err)
	}
	days := make([]int, 0, len(members))
	for _, m := range members {
		d, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}

type userAuthority struct {
	store  *Store
	userID string
}

func (u *userAuthority) log() *logrus.Entry {
	return logrus.WithField("user", u.userID)
}

func (u *userAuthority) tier(ctx context.Context) (authority.Tier, error) {
	raw, err := u.store.client.HGet(ctx, profileKey(u.userID), fieldTier).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", common.Unavailable("read_tier", err)
	}
	tier, err := authority.ParseTier(raw)
	if err != nil {
		return authority.TierFree, nil
	}
	return tier, nil
}

func (u *userAuthority) StartStudySession(ctx context.Context, durationMinutes int) (string, error) {
	tier, err := u.tier(ctx)
	if err != nil {
		return "", err
	}

	limit := freeMaxMinutes
	if tier.IsPaid() {
		limit = paidMaxMinutes
	}
	if durationMinutes < 1 || durationMinutes > limit {
		return "", common.NewRemoteError("start_study_session",
			fmt.Sprintf("duration must be between 1 and %d minutes", limit), common.ErrNotEligible)
	}

	token := uuid.NewString()
	now := u.store.cfg.Now()
	ttl := time.Duration(durationMinutes)*time.Minute + u.store.cfg.SessionGrace

	_, err = u.store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(token), map[string]interface{}{
			"user":       u.userID,
			"minutes":    durationMinutes,
			"started_at": now.UnixMilli(),
			"completed":  "0",
		})
		pipe.Expire(ctx, sessionKey(token), ttl)
		return nil
	})
	if err != nil {
		u.log().Errorf("failed to store study session: %v", err)
		return "", common.Unavailable("start_study_session", err)
	}

	u.log().Infof("study session %s opened for %d minutes", token, durationMinutes)
	return token, nil
}

func (u *userAuthority) CompleteStudySession(ctx context.Context, token string, dayIndex int) (bool, error) {
	now := u.store.cfg.Now()
	if err := habit.ValidDay(now.Year(), dayIndex); err != nil {
		return false, common.NewRemoteError("complete_study_session", err.Error(), common.ErrNotEligible)
	}

	keys := []string{
		sessionKey(token),
		profileKey(u.userID),
		studyLogKey(u.userID, now.Year()),
		badgesKey(u.userID),
	}
	res, err := completeScript.Run(ctx, u.store.client, keys,
		u.userID,
		now.UnixMilli(),
		u.store.cfg.Tolerance.Milliseconds(),
		dayIndex,
		u.store.cfg.Catalog.Rewards.MinutesPerCoin,
	).Int()
	if err != nil {
		u.log().Errorf("failed to complete study session %s: %v", token, err)
		return false, common.Unavailable("complete_study_session", err)
	}

	switch res {
	case resultAccepted:
		u.log().Infof("study session %s verified for day %d", token, dayIndex)
		return true, nil
	case resultRejected:
		u.log().Warnf("study session %s rejected: elapsed time too short", token)
		return false, nil
	case resultWrongCaller:
		return false, common.NewRemoteError("complete_study_session", "session belongs to another user", common.ErrNotEligible)
	default:
		return false, common.NewRemoteError("complete_study_session", "unknown or expired session", common.ErrNotEligible)
	}
}

func (u *userAuthority) PurchaseThemeItem(ctx context.Context, itemID string, cost int) (bool, error) {
	item, ok := u.store.cfg.Catalog.Get(itemID)
	if !ok || item.Kind != catalog.KindTheme {
		return false, common.NewRemoteError("purchase_theme", "not a theme item", common.ErrUnknownItem)
	}
	if item.Cost != cost {
		return false, common.NewRemoteError("purchase_theme", "price mismatch", common.ErrNotEligible)
	}
	if item.PremiumOnly {
		tier, err := u.tier(ctx)
		if err != nil {
			return false, err
		}
		if !tier.IsPaid() {
			return false, nil
		}
	}

	res, err := purchaseThemeScript.Run(ctx, u.store.client,
		[]string{profileKey(u.userID), inventoryKey(u.userID)},
		itemID, cost,
	).Int()
	if err != nil {
		return false, common.Unavailable("purchase_theme", err)
	}

	u.log().Infof("theme purchase %s: accepted=%v", itemID, res == resultAccepted)
	return res == resultAccepted, nil
}

func (u *userAuthority) ActivateXpBoost(ctx context.Context, durationHours, cost int) (bool, error) {
	if !u.boostOffered(durationHours, cost) {
		return false, common.NewRemoteError("activate_xp_boost", "no boost offered at that price", common.ErrNotEligible)
	}

	res, err := activateBoostScript.Run(ctx, u.store.client,
		[]string{profileKey(u.userID)},
		cost, u.store.cfg.Now().Unix(), durationHours*3600,
	).Int()
	if err != nil {
		return false, common.Unavailable("activate_xp_boost", err)
	}

	u.log().Infof("xp boost %dh: accepted=%v", durationHours, res == resultAccepted)
	return res == resultAccepted, nil
}

func (u *userAuthority) boostOffered(durationHours, cost int) bool {
	for _, item := range u.store.cfg.Catalog.Items() {
		if item.Kind == catalog.KindBoost && item.DurationHours == durationHours && item.Cost == cost {
			return true
		}
	}
	return false
}

func (u *userAuthority) FetchProfile(ctx context.Context) (*authority.Profile, error) {
	fields, err := u.store.client.HGetAll(ctx, profileKey(u.userID)).Result()
	if err != nil {
		return nil, common.Unavailable("fetch_profile", err)
	}
	return profileFromHash(fields), nil
}

func profileFromHash(fields map[string]string) *authority.Profile {
	atoi := func(key string, fallback int) int {
		v, err := strconv.Atoi(fields[key])
		if err != nil {
			return fallback
		}
		return v
	}

	p := &authority.Profile{
		Coins:         atoi(fieldCoins, 0),
		StreakFreezes: atoi(fieldFreezes, 0),
		Experience:    atoi(fieldExperience, 0),
		Level:         atoi(fieldLevel, 1),
		ActiveTheme:   fields[fieldActiveTheme],
	}
	if tier, err := authority.ParseTier(fields[fieldTier]); err == nil {
		p.Tier = tier
	} else {
		p.Tier = authority.TierFree
	}
	if p.ActiveTheme == "" {
		p.ActiveTheme = defaultActiveTheme
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if unix, err := strconv.ParseInt(fields[fieldBoostExpires], 10, 64); err == nil && unix > 0 {
		t := time.Unix(unix, 0).UTC()
		p.XPBoostExpiresAt = &t
	}
	return p
}

func (u *userAuthority) FetchInventory(ctx context.Context) ([]string, error) {
	items, err := u.store.client.SMembers(ctx, inventoryKey(u.userID)).Result()
	if err != nil {
		return nil, common.Unavailable("fetch_inventory", err)
	}
	sort.Strings(items)
	return items, nil
}

func (u *userAuthority) FetchBadges(ctx context.Context) ([]string, error) {
	badges, err := u.store.client.SMembers(ctx, badgesKey(u.userID)).Result()
	if err != nil {
		return nil, common.Unavailable("fetch_badges", err)
	}
	sort.Strings(badges)
	return badges, nil
}

// UpdateProfile applies a partial write inside a WATCH transaction. Coin writes
// may only lower the balance and a theme must be owned to become active.
func (u *userAuthority) UpdateProfile(ctx context.Context, update authority.ProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	pKey, iKey := profileKey(u.userID), inventoryKey(u.userID)
	txf := func(tx *redis.Tx) error {
		fields := map[string]interface{}{}

		if update.Coins != nil {
			current, err := tx.HGet(ctx, pKey, fieldCoins).Int()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if *update.Coins < 0 || *update.Coins > current {
				return common.NewRemoteError("update_profile", "coin balance can only be lowered", common.ErrNotEligible)
			}
			fields[fieldCoins] = *update.Coins
		}
		if update.ActiveTheme != nil {
			theme := *update.ActiveTheme
			if theme != defaultActiveTheme {
				owned, err := tx.SIsMember(ctx, iKey, theme).Result()
				if err != nil {
					return err
				}
				if !owned {
					return common.NewRemoteError("update_profile", "theme not owned", common.ErrNotOwned)
				}
			}
			fields[fieldActiveTheme] = theme
		}
		if update.StreakFreezes != nil {
			fields[fieldFreezes] = *update.StreakFreezes
		}
		if update.Experience != nil {
			fields[fieldExperience] = *update.Experience
		}
		if update.Level != nil {
			fields[fieldLevel] = *update.Level
		}
		if update.Tier != nil {
			fields[fieldTier] = string(*update.Tier)
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, pKey, fields)
			return nil
		})
		return err
	}

	if err := u.store.client.Watch(ctx, txf, pKey, iKey); err != nil {
		var remote *common.RemoteError
		if errors.As(err, &remote) {
			return err
		}
		if errors.Is(err, redis.TxFailedErr) {
			return common.NewRemoteError("update_profile", "profile changed concurrently, retry", common.ErrOperationInProgress)
		}
		u.log().Errorf("failed to update profile: %v", err)
		return common.Unavailable("update_profile", err)
	}
	return nil
}

var _ authority.Provider = (*Store)(nil)
