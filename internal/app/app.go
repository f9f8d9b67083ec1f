// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-study-economy/internal/config"
	"github.com/AccelByte/extend-study-economy/internal/server"
	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/authority/redisauth"
	"github.com/AccelByte/extend-study-economy/pkg/authority/supabase"
	"github.com/AccelByte/extend-study-economy/pkg/catalog"
	"github.com/cenkalti/backoff/v4"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	grpcServer        *server.GRPCServer
	metricsServer     *server.MetricsServer
	redisClient       *redis.Client
	health            *redisauth.HealthChecker
	stopHealth        context.CancelFunc
	shutdownTelemetry func(context.Context) error
}

// New creates and initializes a new application instance.
//
// Components are initialized in dependency order:
// 1. Catalog (prices the authority enforces)
// 2. Authority backend (Redis reference store, or a Supabase project)
// 3. Servers (gRPC, metrics)
// 4. Telemetry (OpenTelemetry tracing)
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Infof("initializing %s (%s)...", cfg.ServiceName, cfg.Environment)

	app := &App{cfg: cfg}

	// ============================================================
	// Step 1: Load the catalog
	// ============================================================
	items, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog from %s: %w", cfg.CatalogPath, err)
	}
	logrus.Infof("loaded %d catalog items from %s", len(items.Items()), cfg.CatalogPath)

	// ============================================================
	// Step 2: Initialize the authority backend
	// ============================================================
	provider, err := app.initAuthority(ctx, items)
	if err != nil {
		return nil, err
	}

	// ============================================================
	// Step 3: Setup servers
	// ============================================================
	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort, provider)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics")
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	// ============================================================
	// Step 4: Setup telemetry
	// ============================================================
	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.OtelServiceName, cfg.Environment, cfg.ZipkinEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

func (a *App) initAuthority(ctx context.Context, items *catalog.Catalog) (authority.Provider, error) {
	if a.cfg.SupabaseURL != "" {
		client, err := supabase.New(supabase.Config{
			ProjectURL: a.cfg.SupabaseURL,
			APIKey:     a.cfg.SupabaseKey,
			Timeout:    a.cfg.RemoteCallTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init Supabase authority: %w", err)
		}
		logrus.Infof("serving authority backed by Supabase project %s", a.cfg.SupabaseURL)
		return client, nil
	}

	if err := a.initRedis(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	a.health = redisauth.NewHealthChecker(a.redisClient)

	store := redisauth.NewStore(a.redisClient, redisauth.Config{
		Catalog:      items,
		Tolerance:    a.cfg.SessionTolerance,
		SessionGrace: a.cfg.SessionGrace,
	})
	logrus.Info("serving authority backed by Redis")
	return store, nil
}

// initRedis initializes the Redis client.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisAddr(),
		Password:     a.cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(a.cfg.RedisRetryDelayMs) * time.Millisecond
	maxRetries := backoff.WithMaxRetries(b, uint64(a.cfg.RedisMaxRetries))

	err := backoff.Retry(
		func() error {
			_, err := client.Ping(ctx).Result()
			if err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		backoff.WithContext(maxRetries, ctx),
	)

	if err != nil {
		client.Close()
		return err
	}

	a.redisClient = client
	logrus.Info("Redis client initialized")
	return nil
}
