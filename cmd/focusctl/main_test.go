// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/authority/grpcauth"
	"github.com/AccelByte/extend-study-economy/pkg/authority/redisauth"
	"github.com/AccelByte/extend-study-economy/pkg/catalog"
	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/AccelByte/extend-study-economy/pkg/economy"
	"github.com/AccelByte/extend-study-economy/pkg/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"google.golang.org/grpc"
)

const testCatalog = "../../config/catalog.yaml"

// startAuthority serves a Redis-backed authority on a loopback port.
func startAuthority(t *testing.T) (string, *redisauth.Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store := redisauth.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), redisauth.Config{})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	srv := grpc.NewServer()
	grpcauth.NewServer(store).Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	return lis.Addr().String(), store
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuyAndProfile(t *testing.T) {
	addr, store := startAuthority(t)
	err := store.SeedProfile(context.Background(), "user-1", authority.Profile{Tier: authority.TierFree, Coins: 120, Level: 1})
	if err != nil {
		t.Fatalf("SeedProfile() error = %v", err)
	}
	flags := []string{"--addr", addr, "--user", "user-1", "--catalog", testCatalog, "--timeout", "2s"}

	out, err := run(t, append([]string{"buy", "freeze_1"}, flags...)...)
	if err != nil {
		t.Fatalf("buy error = %v (output %q)", err, out)
	}
	if !strings.Contains(out, "coins left: 70") {
		t.Errorf("buy output = %q, expected coins left: 70", out)
	}

	out, err = run(t, append([]string{"profile"}, flags...)...)
	if err != nil {
		t.Fatalf("profile error = %v", err)
	}
	for _, want := range []string{"tier:      free", "coins:     70", "freezes:   1"} {
		if !strings.Contains(out, want) {
			t.Errorf("profile output missing %q:\n%s", want, out)
		}
	}
}

func TestBuy_PremiumItemForFreeUser(t *testing.T) {
	addr, store := startAuthority(t)
	if err := store.SeedProfile(context.Background(), "user-1", authority.Profile{Coins: 1000, Level: 1}); err != nil {
		t.Fatalf("SeedProfile() error = %v", err)
	}

	_, err := run(t, "buy", "theme_gold", "--addr", addr, "--user", "user-1", "--catalog", testCatalog)
	if !errors.Is(err, common.ErrPremiumRequired) {
		t.Errorf("error = %v, expected ErrPremiumRequired", err)
	}
}

func TestMissingUser(t *testing.T) {
	t.Setenv("FOCUS_USER", "")
	if _, err := run(t, "profile", "--catalog", testCatalog); err == nil {
		t.Error("expected error without a user id")
	}
}

func TestStudy_RejectsOtherDays(t *testing.T) {
	_, err := run(t, "study", "--user", "user-1", "--day", "400")
	if err == nil {
		t.Error("expected error for a day that is not today")
	}
}

func TestStudy(t *testing.T) {
	addr, store := startAuthority(t)
	if err := store.SeedProfile(context.Background(), "user-1", authority.Profile{Level: 1}); err != nil {
		t.Fatalf("SeedProfile() error = %v", err)
	}
	flags := []string{"--addr", addr, "--user", "user-1", "--catalog", testCatalog, "--timeout", "2s",
		"--minutes", "1", "--tick", "1ms"}

	t.Run("research completes locally", func(t *testing.T) {
		out, err := run(t, append([]string{"study", "--research"}, flags...)...)
		if err != nil {
			t.Fatalf("study error = %v (output %q)", err, out)
		}
		if !strings.Contains(out, "research mode") {
			t.Errorf("study output = %q, expected research completion", out)
		}
	})

	t.Run("verified session shorter than booked is rejected", func(t *testing.T) {
		out, err := run(t, append([]string{"study"}, flags...)...)
		if !errors.Is(err, common.ErrVerificationFailed) {
			t.Fatalf("study error = %v (output %q), expected ErrVerificationFailed", err, out)
		}
		profile, err := store.ForUser("user-1").FetchProfile(context.Background())
		if err != nil {
			t.Fatalf("FetchProfile() error = %v", err)
		}
		if profile.Experience != 0 || profile.Coins != 0 {
			t.Errorf("profile = %+v, expected no reward", profile)
		}
	})
}

func TestItemNote(t *testing.T) {
	c := catalog.Default()
	theme, _ := c.Get("theme_gold")
	freeze, _ := c.Get("freeze_1")
	rain, _ := c.Get("sound_pack_rain")

	free := economy.State{Tier: authority.TierFree, Coins: 10}
	paid := economy.State{Tier: authority.TierMonthly, Coins: 1000, Inventory: map[string]struct{}{"theme_gold": {}}}

	tests := []struct {
		name     string
		item     catalog.Item
		state    economy.State
		expected string
	}{
		{name: "coming soon", item: rain, state: paid, expected: "coming soon"},
		{name: "owned theme", item: theme, state: paid, expected: "owned"},
		{name: "premium", item: theme, state: free, expected: "premium"},
		{name: "poor", item: freeze, state: free, expected: "not enough coins"},
		{name: "available", item: freeze, state: paid, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := itemNote(tt.item, tt.state); got != tt.expected {
				t.Errorf("itemNote() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestReport(t *testing.T) {
	var out bytes.Buffer

	err := report(session.Outcome{
		Status: session.StatusCompleted,
		Award:  &economy.Award{Day: 69, XP: 100, Boosted: true, Level: 3},
	}, &out)
	if err != nil {
		t.Fatalf("report() error = %v", err)
	}
	if !strings.Contains(out.String(), "+100 XP (boosted), level 3") {
		t.Errorf("report() output = %q", out.String())
	}

	err = report(session.Outcome{Status: session.StatusRejected, Reason: session.RejectReasonDiscrepancy}, &out)
	if !errors.Is(err, common.ErrVerificationFailed) {
		t.Errorf("report() error = %v, expected ErrVerificationFailed", err)
	}

	failure := common.Unavailable("complete_study_session", errors.New("timeout"))
	if err := report(session.Outcome{Status: session.StatusFailed, Err: failure}, &out); !errors.Is(err, common.ErrRemoteUnavailable) {
		t.Errorf("report() error = %v, expected ErrRemoteUnavailable", err)
	}
}

func TestPrintProfile_Boost(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	expires := now.Add(90 * time.Minute)
	var out bytes.Buffer

	printProfile(&out, economy.State{Level: 2, Experience: 150, Tier: authority.TierFree, ActiveTheme: "default", XPBoostExpiresAt: &expires}, now)

	if !strings.Contains(out.String(), "xp boost:  active for 1h30m0s") {
		t.Errorf("printProfile() output = %q", out.String())
	}
	if !strings.Contains(out.String(), "level:     2 (150/200 XP, 75%)") {
		t.Errorf("printProfile() output = %q", out.String())
	}
}
