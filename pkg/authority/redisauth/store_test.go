// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package redisauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/catalog"
	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*Store, *redis.Client, *testClock) {
	t.Helper()
	client, mr := setupTestRedis(t)
	t.Cleanup(mr.Close)

	clock := &testClock{now: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
	store := NewStore(client, Config{
		Catalog:   catalog.Default(),
		Tolerance: 5 * time.Second,
		Now:       clock.Now,
	})
	return store, client, clock
}

func TestFetchProfile_NewUser(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	p, err := store.ForUser("new-user").FetchProfile(ctx)
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if p.Level != 1 || p.Tier != authority.TierFree || p.ActiveTheme != "default" || p.Coins != 0 {
		t.Errorf("FetchProfile() = %+v, expected level 1 free default theme", p)
	}
	if p.XPBoostExpiresAt != nil {
		t.Error("expected no boost for a new user")
	}
}

func TestSeedProfile_RoundTrip(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()

	expires := clock.Now().Add(time.Hour)
	err := store.SeedProfile(ctx, "user-1", authority.Profile{
		Tier:             authority.TierYearly,
		Coins:            420,
		StreakFreezes:    2,
		Experience:       150,
		Level:            2,
		ActiveTheme:      "theme_gold",
		XPBoostExpiresAt: &expires,
	}, "theme_gold")
	if err != nil {
		t.Fatalf("SeedProfile() error = %v", err)
	}

	auth := store.ForUser("user-1")
	p, err := auth.FetchProfile(ctx)
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if p.Coins != 420 || p.Level != 2 || p.Experience != 150 || p.StreakFreezes != 2 || p.Tier != authority.TierYearly {
		t.Errorf("FetchProfile() = %+v", p)
	}
	if p.XPBoostExpiresAt == nil || !p.XPBoostExpiresAt.Equal(expires) {
		t.Errorf("XPBoostExpiresAt = %v, expected %v", p.XPBoostExpiresAt, expires)
	}

	inventory, err := auth.FetchInventory(ctx)
	if err != nil {
		t.Fatalf("FetchInventory() error = %v", err)
	}
	if len(inventory) != 1 || inventory[0] != "theme_gold" {
		t.Errorf("FetchInventory() = %v, expected [theme_gold]", inventory)
	}
}

func TestStartStudySession_Limits(t *testing.T) {
	tests := []struct {
		name    string
		tier    authority.Tier
		minutes int
		wantErr bool
	}{
		{name: "free at limit", tier: authority.TierFree, minutes: 60},
		{name: "free over limit", tier: authority.TierFree, minutes: 61, wantErr: true},
		{name: "paid at limit", tier: authority.TierMonthly, minutes: 120},
		{name: "paid over limit", tier: authority.TierMonthly, minutes: 121, wantErr: true},
		{name: "zero minutes", tier: authority.TierMonthly, minutes: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, client, _ := newTestStore(t)
			ctx := context.Background()
			if err := store.SeedProfile(ctx, "user-1", authority.Profile{Tier: tt.tier, Level: 1}); err != nil {
				t.Fatalf("SeedProfile() error = %v", err)
			}

			token, err := store.ForUser("user-1").StartStudySession(ctx, tt.minutes)
			if tt.wantErr {
				if !errors.Is(err, common.ErrNotEligible) {
					t.Errorf("StartStudySession() error = %v, expected ErrNotEligible", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("StartStudySession() error = %v", err)
			}
			if token == "" {
				t.Fatal("expected a session token")
			}

			ttl, err := client.TTL(ctx, sessionKey(token)).Result()
			if err != nil {
				t.Fatalf("TTL() error = %v", err)
			}
			expected := time.Duration(tt.minutes)*time.Minute + DefaultSessionGrace
			if ttl != expected {
				t.Errorf("session TTL = %v, expected %v", ttl, expected)
			}
		})
	}
}

func TestCompleteStudySession(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()
	auth := store.ForUser("user-1")

	token, err := auth.StartStudySession(ctx, 25)
	if err != nil {
		t.Fatalf("StartStudySession() error = %v", err)
	}

	clock.Advance(10 * time.Minute)
	ok, err := auth.CompleteStudySession(ctx, token, 69)
	if err != nil {
		t.Fatalf("CompleteStudySession() error = %v", err)
	}
	if ok {
		t.Fatal("expected early completion to be rejected")
	}

	clock.Advance(15*time.Minute - 3*time.Second)
	ok, err = auth.CompleteStudySession(ctx, token, 69)
	if err != nil {
		t.Fatalf("CompleteStudySession() error = %v", err)
	}
	if !ok {
		t.Fatal("expected completion within tolerance to be verified")
	}

	p, _ := auth.FetchProfile(ctx)
	if p.Coins != 5 {
		t.Errorf("Coins = %d, expected 5 (one per 5 minutes)", p.Coins)
	}
	badges, _ := auth.FetchBadges(ctx)
	if len(badges) != 1 || badges[0] != "first_session" {
		t.Errorf("FetchBadges() = %v, expected [first_session]", badges)
	}
	days, err := store.StudiedDays(ctx, "user-1", 2025)
	if err != nil {
		t.Fatalf("StudiedDays() error = %v", err)
	}
	if len(days) != 1 || days[0] != 69 {
		t.Errorf("StudiedDays() = %v, expected [69]", days)
	}

	// settling again is idempotent
	ok, err = auth.CompleteStudySession(ctx, token, 69)
	if err != nil || !ok {
		t.Fatalf("repeat CompleteStudySession() = %v, %v; expected true", ok, err)
	}
	p, _ = auth.FetchProfile(ctx)
	if p.Coins != 5 {
		t.Errorf("Coins = %d after repeat, expected 5", p.Coins)
	}
}

func TestCompleteStudySession_Errors(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()

	token, err := store.ForUser("owner").StartStudySession(ctx, 1)
	if err != nil {
		t.Fatalf("StartStudySession() error = %v", err)
	}
	clock.Advance(time.Minute)

	tests := []struct {
		name  string
		user  string
		token string
		day   int
	}{
		{name: "other user", user: "intruder", token: token, day: 69},
		{name: "unknown token", user: "owner", token: "missing", day: 69},
		{name: "day outside year", user: "owner", token: token, day: 366},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := store.ForUser(tt.user).CompleteStudySession(ctx, tt.token, tt.day)
			if ok {
				t.Error("expected completion to fail")
			}
			var remote *common.RemoteError
			if !errors.As(err, &remote) {
				t.Errorf("error = %v, expected RemoteError", err)
			}
		})
	}
}

func TestPurchaseThemeItem(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SeedProfile(ctx, "free-user", authority.Profile{Tier: authority.TierFree, Coins: 1000, Level: 1}); err != nil {
		t.Fatalf("SeedProfile() error = %v", err)
	}
	if err := store.SeedProfile(ctx, "paid-user", authority.Profile{Tier: authority.TierMonthly, Coins: 600, Level: 1}); err != nil {
		t.Fatalf("SeedProfile() error = %v", err)
	}

	ok, err := store.ForUser("free-user").PurchaseThemeItem(ctx, "theme_gold", 500)
	if err != nil || ok {
		t.Errorf("free user purchase = %v, %v; expected false", ok, err)
	}

	paid := store.ForUser("paid-user")
	ok, err = paid.PurchaseThemeItem(ctx, "theme_gold", 500)
	if err != nil || !ok {
		t.Fatalf("paid user purchase = %v, %v; expected true", ok, err)
	}
	p, _ := paid.FetchProfile(ctx)
	if p.Coins != 100 {
		t.Errorf("Coins = %d, expected 100", p.Coins)
	}
	inventory, _ := paid.FetchInventory(ctx)
	if len(inventory) != 1 || inventory[0] != "theme_gold" {
		t.Errorf("FetchInventory() = %v, expected [theme_gold]", inventory)
	}

	ok, err = paid.PurchaseThemeItem(ctx, "theme_gold", 500)
	if err != nil || ok {
		t.Errorf("repeat purchase = %v, %v; expected false", ok, err)
	}

	if _, err := paid.PurchaseThemeItem(ctx, "theme_gold", 1); !errors.Is(err, common.ErrNotEligible) {
		t.Errorf("price mismatch error = %v, expected ErrNotEligible", err)
	}
	if _, err := paid.PurchaseThemeItem(ctx, "freeze_1", 50); !errors.Is(err, common.ErrUnknownItem) {
		t.Errorf("non-theme error = %v, expected ErrUnknownItem", err)
	}
}

func TestActivateXpBoost(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()
	auth := store.ForUser("user-1")

	if err := store.SeedProfile(ctx, "user-1", authority.Profile{Coins: 400, Level: 1}); err != nil {
		t.Fatalf("SeedProfile() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := auth.ActivateXpBoost(ctx, 1, 150)
		if err != nil || !ok {
			t.Fatalf("ActivateXpBoost() #%d = %v, %v; expected true", i+1, ok, err)
		}
	}

	p, _ := auth.FetchProfile(ctx)
	if p.Coins != 100 {
		t.Errorf("Coins = %d, expected 100", p.Coins)
	}
	expected := clock.Now().Add(2 * time.Hour)
	if p.XPBoostExpiresAt == nil || !p.XPBoostExpiresAt.Equal(expected) {
		t.Errorf("XPBoostExpiresAt = %v, expected stacked expiry %v", p.XPBoostExpiresAt, expected)
	}

	ok, err := auth.ActivateXpBoost(ctx, 1, 150)
	if err != nil || ok {
		t.Errorf("ActivateXpBoost() with 100 coins = %v, %v; expected false", ok, err)
	}
	if _, err := auth.ActivateXpBoost(ctx, 3, 150); !errors.Is(err, common.ErrNotEligible) {
		t.Errorf("unknown boost error = %v, expected ErrNotEligible", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	auth := store.ForUser("user-1")

	if err := store.SeedProfile(ctx, "user-1", authority.Profile{Coins: 100, Level: 1, StreakFreezes: 0}, "theme_gold"); err != nil {
		t.Fatalf("SeedProfile() error = %v", err)
	}

	err := auth.UpdateProfile(ctx, authority.ProfileUpdate{Coins: authority.Int(50), StreakFreezes: authority.Int(1)})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	p, _ := auth.FetchProfile(ctx)
	if p.Coins != 50 || p.StreakFreezes != 1 {
		t.Errorf("FetchProfile() = coins %d freezes %d, expected 50 and 1", p.Coins, p.StreakFreezes)
	}

	if err := auth.UpdateProfile(ctx, authority.ProfileUpdate{Coins: authority.Int(5000)}); !errors.Is(err, common.ErrNotEligible) {
		t.Errorf("coin increase error = %v, expected ErrNotEligible", err)
	}
	if err := auth.UpdateProfile(ctx, authority.ProfileUpdate{ActiveTheme: authority.String("theme_neon")}); !errors.Is(err, common.ErrNotOwned) {
		t.Errorf("unowned theme error = %v, expected ErrNotOwned", err)
	}

	err = auth.UpdateProfile(ctx, authority.ProfileUpdate{
		ActiveTheme: authority.String("theme_gold"),
		Experience:  authority.Int(120),
		Level:       authority.Int(2),
		Tier:        authority.TierPtr(authority.TierYearly),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	p, _ = auth.FetchProfile(ctx)
	if p.ActiveTheme != "theme_gold" || p.Experience != 120 || p.Level != 2 || p.Tier != authority.TierYearly {
		t.Errorf("FetchProfile() = %+v", p)
	}

	if err := auth.UpdateProfile(ctx, authority.ProfileUpdate{}); err != nil {
		t.Errorf("empty UpdateProfile() error = %v", err)
	}
}

func TestHealthChecker(t *testing.T) {
	client, mr := setupTestRedis(t)
	checker := NewHealthChecker(client)

	if err := checker.Check(context.Background()); err != nil {
		t.Errorf("Check() error = %v, expected healthy", err)
	}

	mr.Close()
	if err := checker.Check(context.Background()); err == nil {
		t.Error("Check() expected error after Redis closed")
	}
}

func TestHealthChecker_Watch(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	checker := NewHealthChecker(client)

	ctx, cancel := context.WithCancel(context.Background())
	reports := make(chan bool, 4)
	go checker.Watch(ctx, time.Hour, func(healthy bool) {
		reports <- healthy
		cancel()
	})

	select {
	case healthy := <-reports:
		if !healthy {
			t.Error("expected first report to be healthy")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for health report")
	}
}
