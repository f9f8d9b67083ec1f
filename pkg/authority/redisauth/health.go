// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package redisauth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// HealthChecker reports whether the Redis backing the store is reachable.
type HealthChecker struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(client redis.UniversalClient) *HealthChecker {
	return &HealthChecker{client: client, timeout: 2 * time.Second}
}

// Check performs a Redis health check
func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if _, err := h.client.Ping(ctx).Result(); err != nil {
		logrus.Errorf("Redis health check failed: %v", err)
		return err
	}

	logrus.Debugf("Redis health check passed")
	return nil
}

// Watch runs Check every interval and calls report whenever the result
// changes, starting with the first result. It returns when ctx ends.
func (h *HealthChecker) Watch(ctx context.Context, interval time.Duration, report func(healthy bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	first := true
	last := false
	for {
		healthy := h.Check(ctx) == nil
		if first || healthy != last {
			report(healthy)
			first, last = false, healthy
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
