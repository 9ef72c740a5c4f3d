package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dashboard-service/apperrors"
	"dashboard-service/controllers"
	"dashboard-service/database"
	"dashboard-service/logger"
	"dashboard-service/middleware"
	awspkg "dashboard-service/pkg/aws"
	"dashboard-service/repository"
	"dashboard-service/routes"
	"dashboard-service/seeding"
	"dashboard-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const serviceName = "dashboard-service"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var awsCfg *sdkaws.Config
	var awsErr error
	if cfg.NeedsAWS() {
		c, err := awspkg.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err == nil {
			awsCfg = &c
		}
		awsErr = err
	}

	var logSink io.Writer
	if cfg.CloudWatchEnabled && awsCfg != nil {
		if w, err := awspkg.NewLogWriter(ctx, *awsCfg, cfg.CloudWatchLogGroup, serviceName); err == nil {
			logSink = w
		} else {
			log.Printf("CloudWatch Logs unavailable: %v", err)
		}
	}
	appLogger, err := logger.New(cfg.Env, cfg.LogLevel, logSink)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	if awsErr != nil {
		appLogger.Warn("AWS config unavailable, AWS integrations disabled", zap.Error(awsErr))
	}
	if cfg.AWSUseSecrets && awsCfg != nil {
		if err := cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(*awsCfg)); err != nil {
			appLogger.Warn("Secrets Manager override failed, using environment", zap.Error(err))
		}
	}
	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid config", zap.Error(err))
	}

	db, err := database.Open(ctx, appLogger, cfg.Postgres)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	var metrics *awspkg.MetricsClient
	var snsClient awspkg.SNSPublisher
	if awsCfg != nil {
		metrics = awspkg.NewMetricsClient(*awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
		if cfg.SeedSNSTopicARN != "" {
			snsClient = awspkg.NewSNSClient(*awsCfg, appLogger)
		}
	}

	cache := controllers.NewCacheManager(connectRedis(ctx, cfg.RedisURL, appLogger), cfg.CatalogCacheTTL, metrics)

	session, err := newSeedingSession(ctx, cfg, awsCfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to prepare seeding", zap.Error(err))
	}
	notifier := services.NewSeedingNotifier(metrics, snsClient, cfg.SeedSNSTopicARN, serviceName, appLogger)
	session.OnFinish(cache.InvalidateAfterSeeding)
	session.OnFinish(notifier.OnFinish)
	if err := session.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start seeding", zap.Error(err))
	}
	go notifier.ReportProgress(ctx, session, cfg.SeedProgressInterval)

	catalogService := services.NewCatalogService(repository.NewGormCatalogRepository(db), appLogger)
	catalogController := controllers.NewCatalogController(catalogService, cache)
	seedingController := controllers.NewSeedingController(session, serviceName)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, 0, 5*time.Minute)
	go rateLimiter.Cleanup(ctx)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(appLogger))
	r.Use(middleware.Metrics(metrics, serviceName))
	r.Use(apperrors.ErrorMiddleware(appLogger))

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})

	routes.RegisterRoutes(r, catalogController, seedingController, rateLimiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	appLogger.Info("Dashboard service started", zap.String("port", cfg.Port), zap.Bool("seeding_enabled", cfg.SeedEnabled))
	<-ctx.Done()
	appLogger.Info("Shutting down dashboard service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	// ctx is cancelled, so an unfinished session stops at its next batch.
	select {
	case <-session.Done():
	case <-shutdownCtx.Done():
		appLogger.Warn("Seeding did not stop before shutdown timeout", zap.String("state", string(session.State())))
	}
	appLogger.Info("Server exited cleanly")
}

// newSeedingSession wires the seeders to their own single-connection pool.
// With seeding disabled the session has no seeders and ends as skipped.
func newSeedingSession(ctx context.Context, cfg *Config, awsCfg *sdkaws.Config, logger *zap.Logger) (*seeding.Orchestrator, error) {
	if !cfg.SeedEnabled {
		logger.Info("Seeding disabled")
		return seeding.NewOrchestrator(logger), nil
	}

	seedDB, err := database.OpenSeeding(ctx, logger, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	store := repository.NewGormSeedStore(seedDB)

	session := seeding.NewOrchestrator(logger,
		seeding.NewCatalogSeeder(store, cfg.SeedDataDir, cfg.SeedBatchSize, logger.Named("catalog")),
		seeding.NewOrderingSeeder(store, cfg.SeedDataDir, cfg.SeedBatchSize, logger.Named("ordering")),
	)

	if cfg.SeedS3Bucket != "" {
		if awsCfg == nil {
			logger.Warn("SEED_S3_BUCKET set but AWS is unavailable, using local seed files")
		} else {
			fetcher := awspkg.NewSeedFileFetcher(awspkg.NewS3Client(*awsCfg), cfg.SeedS3Bucket, cfg.SeedS3Prefix, logger)
			session.BeforeRun(func(ctx context.Context) error {
				return fetcher.Fetch(ctx, cfg.SeedDataDir,
					seeding.CatalogItemsFile, seeding.CatalogTagsFile,
					seeding.OrdersFile, seeding.OrderItemsFile)
			})
		}
	}

	session.OnFinish(func(ctx context.Context, _ seeding.Snapshot) {
		if err := database.Close(seedDB); err != nil {
			logger.Warn("Failed to close seeding connection", zap.Error(err))
		}
	})
	return session, nil
}

// connectRedis returns nil when no URL is configured. An unreachable server
// is not fatal; every lookup then misses.
func connectRedis(ctx context.Context, url string, logger *zap.Logger) *redis.Client {
	if url == "" {
		logger.Info("REDIS_URL not set, catalog cache disabled")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("Invalid REDIS_URL, catalog cache disabled", zap.Error(err))
		return nil
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, catalog cache will miss", zap.Error(err))
	}
	return rdb
}
