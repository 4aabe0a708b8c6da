package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	cacheredis "github.com/lumenpress/searchsync/internal/cache/redis"
	"github.com/lumenpress/searchsync/internal/config"
	"github.com/lumenpress/searchsync/internal/content"
	"github.com/lumenpress/searchsync/internal/index"
	logpkg "github.com/lumenpress/searchsync/internal/logger"
	"github.com/lumenpress/searchsync/internal/metrics"
	"github.com/lumenpress/searchsync/internal/monitor"
	"github.com/lumenpress/searchsync/internal/registry"
	"github.com/lumenpress/searchsync/internal/sanitize"
	"github.com/lumenpress/searchsync/internal/store/postgres"
)

// app is the shared composition root for serve and reindex.
type app struct {
	env     string
	cfg     config.Config
	log     *zap.Logger
	cache   *cacheredis.Store
	db      *postgres.Store
	engine  *index.Client
	mon     *monitor.Monitor
	reg     *registry.Registry
	builder *registry.Builder
}

// buildApp wires the full dependency graph. The returned cleanup closes
// connections in reverse order of creation.
func buildApp(ctx context.Context) (*app, func(), error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.Register()

	cacheStore, err := cacheredis.NewStore(cacheredis.Config{
		Addrs:    cfg.Cache.Addrs,
		Username: cfg.Cache.Username,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create cache store: %w", err)
	}
	readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
	if err := cacheStore.WaitForReady(ctx, readiness); err != nil {
		cacheStore.Close()
		return nil, nil, fmt.Errorf("cache store not ready: %w", err)
	}

	db, err := postgres.NewStore(postgres.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		cacheStore.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	engine, err := index.New(index.Config{
		URL:      cfg.Engine.URL,
		APIKey:   cfg.Engine.APIKey,
		IndexUID: cfg.Engine.IndexUID,
		Timeout:  time.Duration(cfg.Engine.TimeoutSec) * time.Second,
	})
	if err != nil {
		_ = db.Close()
		cacheStore.Close()
		return nil, nil, fmt.Errorf("create engine client: %w", err)
	}

	mon := monitor.New(cacheStore, engine, monitor.Config{
		KeyPrefix:     cfg.Cache.KeyPrefix,
		QueryRingSize: int64(cfg.Sync.QueryRingSize),
		SyncRingSize:  int64(cfg.Sync.SyncRingSize),
		RingTTL:       time.Duration(cfg.Sync.RingTTLSec) * time.Second,
		HealthTTL:     time.Duration(cfg.Sync.HealthTTLSec) * time.Second,
		Thresholds: monitor.Thresholds{
			DegradedLatencyMS:  cfg.Health.DegradedLatencyMS,
			UnhealthyLatencyMS: cfg.Health.UnhealthyLatencyMS,
			DegradedErrorRate:  cfg.Health.DegradedErrorRate,
			UnhealthyErrorRate: cfg.Health.UnhealthyErrorRate,
		},
	}, log)

	reg := content.DefaultRegistry()
	builder := registry.NewBuilder(reg, sanitize.New(), log)

	a := &app{
		env:     env,
		cfg:     cfg,
		log:     log,
		cache:   cacheStore,
		db:      db,
		engine:  engine,
		mon:     mon,
		reg:     reg,
		builder: builder,
	}
	cleanup := func() {
		_ = db.Close()
		cacheStore.Close()
		_ = log.Sync()
	}
	return a, cleanup, nil
}
