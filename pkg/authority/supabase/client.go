// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package supabase implements authority.Authority on top of a Supabase
// project: PostgREST tables for reads and database functions for every
// operation that must be verified or atomic.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultReadRetries = 3
	profileColumns     = "subscription_tier,coins,streak_freeze_count,exp_points,level,active_theme,xp_boost_expires_at"
)

// Config configures the Supabase client.
type Config struct {
	ProjectURL string
	APIKey     string
	// AccessToken is the user's JWT. The API key is used as bearer when empty.
	AccessToken string
	Timeout     time.Duration
	ReadRetries uint64
	HTTPClient  *http.Client
}

// Client performs Supabase REST calls.
type Client struct {
	cfg    Config
	prefix string
	http   *http.Client
}

// New creates a Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ReadRetries == 0 {
		cfg.ReadRetries = defaultReadRetries
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		cfg:    cfg,
		prefix: strings.TrimRight(cfg.ProjectURL, "/") + "/rest/v1",
		http:   httpClient,
	}, nil
}

// ForUser returns an Authority acting on behalf of userID.
func (c *Client) ForUser(userID string) authority.Authority {
	return &userClient{client: c, userID: userID}
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.prefix+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	bearer := c.cfg.AccessToken
	if bearer == "" {
		bearer = c.cfg.APIKey
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, common.Unavailable(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.Unavailable(op, err)
	}
	if resp.StatusCode >= 300 {
		return nil, statusError(op, resp.StatusCode, data)
	}
	return data, nil
}

// statusError decodes a PostgREST error body.
func statusError(op string, code int, body []byte) error {
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code >= 500 || code == http.StatusTooManyRequests:
		return common.Unavailable(op, fmt.Errorf("status %d: %s", code, msg))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return common.NewRemoteError(op, msg, nil)
	default:
		return common.NewRemoteError(op, msg, common.ErrNotEligible)
	}
}

// read performs an idempotent GET, retrying transport and server failures.
func (c *Client) read(ctx context.Context, op, table string, query url.Values, headers map[string]string) ([]byte, error) {
	path := "/" + url.PathEscape(table) + "?" + query.Encode()

	var data []byte
	operation := func() error {
		var err error
		data, err = c.do(ctx, op, http.MethodGet, path, nil, headers)
		if err != nil && !errors.Is(err, common.ErrRemoteUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newReadBackoff(), c.cfg.ReadRetries), ctx)
	notify := func(err error, d time.Duration) {
		logrus.Warnf("%s failed, retrying in %v: %v", op, d, err)
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return data, nil
}

func newReadBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// rpc calls a database function once. Mutations are never retried.
func (c *Client) rpc(ctx context.Context, fn string, params map[string]interface{}) (gjson.Result, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: failed to encode params: %w", fn, err)
	}
	data, err := c.do(ctx, fn, http.MethodPost, "/rpc/"+fn, body, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(data), nil
}

type userClient struct {
	client *Client
	userID string
}

func (u *userClient) StartStudySession(ctx context.Context, durationMinutes int) (string, error) {
	res, err := u.client.rpc(ctx, "start_study_session", map[string]interface{}{
		"p_duration": durationMinutes,
	})
	if err != nil {
		return "", err
	}
	if res.String() == "" {
		return "", common.NewRemoteError("start_study_session", "no session id returned", nil)
	}
	return res.String(), nil
}

func (u *userClient) CompleteStudySession(ctx context.Context, token string, dayIndex int) (bool, error) {
	res, err := u.client.rpc(ctx, "complete_study_session", map[string]interface{}{
		"p_session_id": token,
		"p_day_index":  dayIndex,
	})
	if err != nil {
		return false, err
	}
	return res.Bool(), nil
}

func (u *userClient) PurchaseThemeItem(ctx context.Context, itemID string, cost int) (bool, error) {
	res, err := u.client.rpc(ctx, "purchase_theme", map[string]interface{}{
		"p_item_id": itemID,
		"p_cost":    cost,
	})
	if err != nil {
		return false, err
	}
	return res.Bool(), nil
}

func (u *userClient) ActivateXpBoost(ctx context.Context, durationHours, cost int) (bool, error) {
	res, err := u.client.rpc(ctx, "activate_xp_boost", map[string]interface{}{
		"p_duration_hours": durationHours,
		"p_cost":           cost,
	})
	if err != nil {
		return false, err
	}
	return res.Bool(), nil
}

func (u *userClient) FetchProfile(ctx context.Context) (*authority.Profile, error) {
	query := url.Values{}
	query.Set("select", profileColumns)
	query.Set("id", "eq."+u.userID)

	data, err := u.client.read(ctx, "fetch_profile", "profiles", query, map[string]string{
		"Accept": "application/vnd.pgrst.object+json",
	})
	if err != nil {
		return nil, err
	}
	return parseProfile(gjson.ParseBytes(data))
}

func parseProfile(row gjson.Result) (*authority.Profile, error) {
	tier, err := authority.ParseTier(row.Get("subscription_tier").String())
	if err != nil {
		return nil, common.NewRemoteError("fetch_profile", err.Error(), nil)
	}

	p := &authority.Profile{
		Tier:          tier,
		Coins:         int(row.Get("coins").Int()),
		StreakFreezes: int(row.Get("streak_freeze_count").Int()),
		Experience:    int(row.Get("exp_points").Int()),
		Level:         int(row.Get("level").Int()),
		ActiveTheme:   row.Get("active_theme").String(),
	}
	if raw := row.Get("xp_boost_expires_at").String(); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, common.NewRemoteError("fetch_profile", fmt.Sprintf("bad xp_boost_expires_at %q", raw), nil)
		}
		p.XPBoostExpiresAt = &t
	}
	return p, nil
}

func (u *userClient) fetchColumn(ctx context.Context, op, table, column string) ([]string, error) {
	query := url.Values{}
	query.Set("select", column)
	query.Set("user_id", "eq."+u.userID)

	data, err := u.client.read(ctx, op, table, query, nil)
	if err != nil {
		return nil, err
	}

	values := gjson.GetBytes(data, "#."+column).Array()
	ids := make([]string, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.String())
	}
	return ids, nil
}

func (u *userClient) FetchInventory(ctx context.Context) ([]string, error) {
	return u.fetchColumn(ctx, "fetch_inventory", "user_inventory", "item_id")
}

func (u *userClient) FetchBadges(ctx context.Context) ([]string, error) {
	return u.fetchColumn(ctx, "fetch_badges", "user_badges", "badge_id")
}

func (u *userClient) UpdateProfile(ctx context.Context, update authority.ProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("update_profile: failed to encode update: %w", err)
	}

	path := "/profiles?id=" + url.QueryEscape("eq."+u.userID)
	_, err = u.client.do(ctx, "update_profile", http.MethodPatch, path, body, map[string]string{
		"Prefer": "return=minimal",
	})
	return err
}

var _ authority.Provider = (*Client)(nil)
