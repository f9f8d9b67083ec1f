// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/common"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		ProjectURL:  srv.URL + "/",
		APIKey:      "anon-key",
		AccessToken: "user-jwt",
		Timeout:     2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Error("expected error without project URL")
	}
	if _, err := New(Config{ProjectURL: "http://localhost"}); err == nil {
		t.Error("expected error without api key")
	}
}

func TestRPC_StartAndComplete(t *testing.T) {
	var (
		mu        sync.Mutex
		gotBodies []map[string]interface{}
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, expected POST", r.Method)
		}
		if r.Header.Get("apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer user-jwt" {
			t.Errorf("unexpected auth headers: %v", r.Header)
		}
		body, _ := io.ReadAll(r.Body)
		var params map[string]interface{}
		_ = json.Unmarshal(body, &params)
		mu.Lock()
		gotBodies = append(gotBodies, params)
		mu.Unlock()

		switch r.URL.Path {
		case "/rest/v1/rpc/start_study_session":
			w.Write([]byte(`"7d3c1a6e-2f0b-4c1d-9a57-0b7f0e9d1c2a"`))
		case "/rest/v1/rpc/complete_study_session":
			w.Write([]byte(`true`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	auth := c.ForUser("user-1")
	ctx := context.Background()

	token, err := auth.StartStudySession(ctx, 25)
	if err != nil {
		t.Fatalf("StartStudySession() error = %v", err)
	}
	if token != "7d3c1a6e-2f0b-4c1d-9a57-0b7f0e9d1c2a" {
		t.Errorf("token = %q", token)
	}

	ok, err := auth.CompleteStudySession(ctx, token, 69)
	if err != nil || !ok {
		t.Fatalf("CompleteStudySession() = %v, %v", ok, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(gotBodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(gotBodies))
	}
	if gotBodies[0]["p_duration"] != float64(25) {
		t.Errorf("start params = %v", gotBodies[0])
	}
	if gotBodies[1]["p_session_id"] != token || gotBodies[1]["p_day_index"] != float64(69) {
		t.Errorf("complete params = %v", gotBodies[1])
	}
}

func TestRPC_Purchases(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected bool
	}{
		{name: "accepted", response: "true", expected: true},
		{name: "declined", response: "false", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.response))
			})
			auth := c.ForUser("user-1")

			ok, err := auth.PurchaseThemeItem(context.Background(), "theme_gold", 500)
			if err != nil || ok != tt.expected {
				t.Errorf("PurchaseThemeItem() = %v, %v; expected %v", ok, err, tt.expected)
			}
			ok, err = auth.ActivateXpBoost(context.Background(), 1, 150)
			if err != nil || ok != tt.expected {
				t.Errorf("ActivateXpBoost() = %v, %v; expected %v", ok, err, tt.expected)
			}
		})
	}
}

func TestRPC_ErrorsAreNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"database is down"}`))
	})

	_, err := c.ForUser("user-1").PurchaseThemeItem(context.Background(), "theme_gold", 500)
	if !errors.Is(err, common.ErrRemoteUnavailable) {
		t.Errorf("error = %v, expected ErrRemoteUnavailable", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("RPC attempted %d times, expected 1", got)
	}
}

func TestRPC_RejectionMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"P0001","message":"Duration exceeds your plan limit"}`))
	})

	_, err := c.ForUser("user-1").StartStudySession(context.Background(), 90)
	if !errors.Is(err, common.ErrNotEligible) {
		t.Fatalf("error = %v, expected ErrNotEligible", err)
	}
	if got := common.UserMessage(err); got != "Duration exceeds your plan limit" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestFetchProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/profiles" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "eq.user-1" {
			t.Errorf("id filter = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.pgrst.object+json" {
			t.Errorf("Accept = %q", got)
		}
		w.Write([]byte(`{
			"subscription_tier": "yearly",
			"coins": 320,
			"streak_freeze_count": 2,
			"exp_points": 140,
			"level": 2,
			"active_theme": "theme_gold",
			"xp_boost_expires_at": "2025-03-10T13:00:00.5+00:00"
		}`))
	})

	p, err := c.ForUser("user-1").FetchProfile(context.Background())
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if p.Tier != authority.TierYearly || p.Coins != 320 || p.StreakFreezes != 2 || p.Experience != 140 || p.Level != 2 || p.ActiveTheme != "theme_gold" {
		t.Errorf("FetchProfile() = %+v", p)
	}
	expected := time.Date(2025, time.March, 10, 13, 0, 0, 500000000, time.UTC)
	if p.XPBoostExpiresAt == nil || !p.XPBoostExpiresAt.Equal(expected) {
		t.Errorf("XPBoostExpiresAt = %v, expected %v", p.XPBoostExpiresAt, expected)
	}
}

func TestFetchProfile_NullBoost(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"subscription_tier":"free","coins":0,"level":1,"active_theme":null,"xp_boost_expires_at":null}`))
	})

	p, err := c.ForUser("user-1").FetchProfile(context.Background())
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if p.XPBoostExpiresAt != nil {
		t.Errorf("XPBoostExpiresAt = %v, expected nil", p.XPBoostExpiresAt)
	}
	if p.Tier != authority.TierFree {
		t.Errorf("Tier = %s, expected free", p.Tier)
	}
}

func TestFetchProfile_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"subscription_tier":"monthly","coins":10,"level":1}`))
	})

	p, err := c.ForUser("user-1").FetchProfile(context.Background())
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if p.Tier != authority.TierMonthly {
		t.Errorf("Tier = %s, expected monthly", p.Tier)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("attempts = %d, expected 3", got)
	}
}

func TestFetchProfile_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	_, err := c.ForUser("user-1").FetchProfile(context.Background())
	var remote *common.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, expected RemoteError", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("attempts = %d, expected 1", got)
	}
}

func TestFetchInventoryAndBadges(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_id"); got != "eq.user-1" {
			t.Errorf("user_id filter = %q", got)
		}
		switch r.URL.Path {
		case "/rest/v1/user_inventory":
			w.Write([]byte(`[{"item_id":"theme_gold"},{"item_id":"theme_neon"}]`))
		case "/rest/v1/user_badges":
			w.Write([]byte(`[{"badge_id":"first_session"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	auth := c.ForUser("user-1")

	inventory, err := auth.FetchInventory(context.Background())
	if err != nil {
		t.Fatalf("FetchInventory() error = %v", err)
	}
	if len(inventory) != 2 || inventory[0] != "theme_gold" || inventory[1] != "theme_neon" {
		t.Errorf("FetchInventory() = %v", inventory)
	}

	badges, err := auth.FetchBadges(context.Background())
	if err != nil {
		t.Fatalf("FetchBadges() error = %v", err)
	}
	if len(badges) != 1 || badges[0] != "first_session" {
		t.Errorf("FetchBadges() = %v", badges)
	}
}

func TestUpdateProfile(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		filter string
		body   map[string]interface{}
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		method = r.Method
		filter = r.URL.Query().Get("id")
		_ = json.Unmarshal(data, &body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.ForUser("user-1").UpdateProfile(context.Background(), authority.ProfileUpdate{
		Coins:         authority.Int(0),
		StreakFreezes: authority.Int(3),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPatch || filter != "eq.user-1" {
		t.Errorf("request = %s id=%s", method, filter)
	}
	if len(body) != 2 || body["coins"] != float64(0) || body["streak_freeze_count"] != float64(3) {
		t.Errorf("body = %v, expected coins and streak_freeze_count only", body)
	}
}
