// Package main runs the video backend HTTP server: upload session issuance,
// the video read API, and the event webhooks, with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/skylight-video/backend/config"
	"github.com/skylight-video/backend/internal/middleware"
	"github.com/skylight-video/backend/internal/transcode"
	"github.com/skylight-video/backend/internal/upload"
	"github.com/skylight-video/backend/internal/videos"
	"github.com/skylight-video/backend/internal/videostore"
	"github.com/skylight-video/backend/internal/webhooks"
	"github.com/skylight-video/backend/internal/worker"
	"github.com/skylight-video/backend/pkg/auth"
	"github.com/skylight-video/backend/pkg/database"
	"github.com/skylight-video/backend/pkg/queue"
	"github.com/skylight-video/backend/pkg/redis"
	"github.com/skylight-video/backend/pkg/response"
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

	ctx := context.Background()

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

	s3Client := storage.NewS3(awsCfg, storage.S3Config{
		Region:        cfg.AWS.Region,
		UploadsBucket: cfg.AWS.UploadsBucket,
		OutputsBucket: cfg.AWS.OutputsBucket,
	}, logger)

	engine := transcode.NewMediaConvertEngine(awsCfg, transcode.MediaConvertConfig{
		RoleARN:       cfg.Transcode.RoleARN,
		JobTemplate:   cfg.Transcode.JobTemplate,
		Endpoint:      cfg.Transcode.Endpoint,
		OutputsBucket: cfg.AWS.OutputsBucket,
	}, logger)

	events := queue.NewQueue(rdb.Client, logger)

	var tokens *auth.TokenService
	if cfg.Webhook.Secret != "" {
		tokens = auth.NewTokenService(cfg.Webhook.Secret, 24*365)
	} else {
		logger.Warn("WEBHOOK_SECRET not set, webhook auth disabled")
	}

	issuer := upload.NewIssuer(store, s3Client, time.Duration(cfg.AWS.UploadExpireSec)*time.Second, logger)
	uploadHandler := upload.NewHandler(issuer, s3Client, logger)
	videoHandler := videos.NewHandler(store, cfg.Delivery.Origin, cfg.Store.PageSize, logger)
	webhookHandler := webhooks.NewHandler(events, logger)

	dispatcher := transcode.NewDispatcher(store, engine, logger)
	completion := transcode.NewCompletionHandler(store, logger)
	processor := worker.NewEventProcessor(events, dispatcher, completion, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	router.POST("/upload", uploadHandler.Issue)
	router.POST("/upload/direct", uploadHandler.IssueDirect)
	router.GET("/videos", videoHandler.List)
	router.GET("/videos/:videoId", videoHandler.Get)

	hooks := router.Group("/webhooks")
	hooks.Use(middleware.WebhookAuth(tokens))
	{
		hooks.POST("/storage-events", webhookHandler.StorageEvents)
		hooks.POST("/transcode-events", webhookHandler.TranscodeEvents)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Inline event worker; a dedicated worker process (cmd/worker) can take
	// over when the deployment separates ingestion from processing.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go processor.Run(workerCtx)
	logger.Info("event worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newStore builds the configured record store backend. The returned cleanup
// releases backend resources (connection pool) at shutdown.
func newStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (videostore.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
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
