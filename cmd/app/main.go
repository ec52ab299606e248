package main

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"feedline/internal/adapters/columnstore"
	"feedline/internal/adapters/events"
	"feedline/internal/adapters/httpapi"
	leveldbadapter "feedline/internal/adapters/leveldb"
	memoryadapter "feedline/internal/adapters/memory"
	mysqladapter "feedline/internal/adapters/mysql"
	redisadapter "feedline/internal/adapters/redis"
	"feedline/internal/config"
	fanoutapp "feedline/internal/core/fanout/service"
	postapp "feedline/internal/core/post/service"
	relationapp "feedline/internal/core/relation/service"
	timelineapp "feedline/internal/core/timeline/service"
	userapp "feedline/internal/core/user/service"
	fanoutPort "feedline/internal/ports/fanout"
	storePort "feedline/internal/ports/store"
	"feedline/internal/workers"
)

func main() {
	logger, err := config.NewLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	cs, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to open column store",
			zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer func() {
		if err := cs.Close(); err != nil {
			logger.Error("error closing column store", zap.Error(err))
		}
	}()
	logger.Info("column store ready", zap.String("backend", cfg.StoreBackend))

	contentRepo := columnstore.NewContentRepository(cs)
	relationRepo := columnstore.NewRelationRepository(cs)
	timelineRepo := columnstore.NewTimelineRepository(cs, cfg.TimelineDepth)
	fanoutRepo := columnstore.NewFanoutRepository(cs)
	userRepo := columnstore.NewUserRepository(cs)

	engine := fanoutapp.NewEngine(relationRepo, timelineRepo, contentRepo, cfg.FanoutWorkers, logger)
	worker := workers.NewFanoutWorker(fanoutRepo, engine,
		cfg.FanoutBatchSize, cfg.FanoutInterval, cfg.FanoutMaxAttempts, logger)

	// NATS is a nudge channel, not a requirement. Without it fan-out
	// still drains on the worker's polling interval.
	var notifier fanoutPort.Notifier
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.String("url", cfg.NatsURL), zap.Error(err))
		}
		defer nc.Drain()

		notifier = events.NewPublisher(nc, logger)
		sub, err := events.SubscribePostCreated(nc, logger, worker.Wake)
		if err != nil {
			logger.Fatal("failed to subscribe to post events", zap.Error(err))
		}
		defer sub.Unsubscribe()
		logger.Info("connected to NATS", zap.String("url", cfg.NatsURL))
	}

	userSvc := userapp.NewUserService(userRepo, []byte(cfg.JWTSecret), logger)
	postSvc := postapp.NewPostService(contentRepo, fanoutRepo, notifier, logger)
	relationSvc := relationapp.NewRelationService(relationRepo, fanoutRepo, cfg.BackfillLimit, logger)
	timelineSvc := timelineapp.NewTimelineService(timelineRepo, contentRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	r := httpapi.SetupRoutes([]byte(cfg.JWTSecret), userSvc, postSvc, relationSvc, timelineSvc)

	logger.Info("app is running", zap.String("port", cfg.AppPort))
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logger.Fatal("server failed to start", zap.Error(err))
	}
}

func openStore(cfg *config.Config) (storePort.ColumnStore, error) {
	schema := columnstore.Schema(cfg.TimelineDepth)
	switch cfg.StoreBackend {
	case "leveldb":
		return leveldbadapter.Open(cfg.LevelDBPath, schema)
	case "memory":
		return memoryadapter.NewStore(schema), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisadapter.NewStore(client, schema), nil
	case "mysql":
		return mysqladapter.Open(cfg.MySQLDSN, schema)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
