// Package main runs the standalone event worker: it drains the storage and
// transcode event queues and drives video records through their lifecycle.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/skylight-video/backend/config"
	"github.com/skylight-video/backend/internal/transcode"
	"github.com/skylight-video/backend/internal/videostore"
	"github.com/skylight-video/backend/internal/worker"
	"github.com/skylight-video/backend/pkg/database"
	"github.com/skylight-video/backend/pkg/queue"
	"github.com/skylight-video/backend/pkg/redis"
	"github.com/skylight-video/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := storage.LoadAWSConfig(ctx, cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, logger)
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}

	store, cleanup, err := newStore(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Fatal("record store", zap.Error(err))
	}
	defer cleanup()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	engine := transcode.NewMediaConvertEngine(awsCfg, transcode.MediaConvertConfig{
		RoleARN:       cfg.Transcode.RoleARN,
		JobTemplate:   cfg.Transcode.JobTemplate,
		Endpoint:      cfg.Transcode.Endpoint,
		OutputsBucket: cfg.AWS.OutputsBucket,
	}, logger)

	events := queue.NewQueue(rdb.Client, logger)
	dispatcher := transcode.NewDispatcher(store, engine, logger)
	completion := transcode.NewCompletionHandler(store, logger)
	processor := worker.NewEventProcessor(events, dispatcher, completion, logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker")
		cancel()
	}()

	logger.Info("event worker started")
	processor.Run(ctx)
	logger.Info("event worker stopped")
}

func newStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (videostore.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			return nil, nil, err
		}
		return videostore.NewPostgresStore(pool), pool.Close, nil
	case config.StoreBackendMemory:
		logger.Warn("using in-memory record store, records will not survive a restart")
		return videostore.NewMemoryStore(), func() {}, nil
	default:
		store, err := videostore.NewDynamoDBStore(awsCfg, cfg.Store.Table)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func newLogger() *zap.Logger {
	logCfg := zap.NewProductionConfig()
	logCfg.EncoderConfig.TimeKey = "timestamp"
	logCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := logCfg.Build()
	return logger
}
