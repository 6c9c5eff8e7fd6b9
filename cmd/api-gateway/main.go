package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/smart-haryana-gateway/api/swagger"
	"github.com/noah-isme/smart-haryana-gateway/internal/civic"
	"github.com/noah-isme/smart-haryana-gateway/internal/handler"
	"github.com/noah-isme/smart-haryana-gateway/internal/repository"
	"github.com/noah-isme/smart-haryana-gateway/internal/service"
	"github.com/noah-isme/smart-haryana-gateway/pkg/cache"
	"github.com/noah-isme/smart-haryana-gateway/pkg/config"
	"github.com/noah-isme/smart-haryana-gateway/pkg/database"
	"github.com/noah-isme/smart-haryana-gateway/pkg/logger"
	"github.com/noah-isme/smart-haryana-gateway/pkg/storage"
)

// @title Smart Haryana Gateway API
// @version 1.0.0
// @description Role-scoped gateway in front of the Smart Haryana civic-issues backend
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, "migrations"); err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable; caching and rate limiting disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	civicClient := civic.NewClient(civic.Config{
		BaseURL:   cfg.Civic.BaseURL,
		Timeout:   cfg.Civic.Timeout,
		Retries:   2,
		Logger:    logr.Named("civic"),
		Observer:  metrics,
		Validator: validate,
	})

	var cacheRepo service.CacheRepository
	var limiter *repository.RateLimitRepository
	if redisClient != nil {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient)
		limiter = repository.NewRateLimitRepository(redisClient, cfg.RateLimit.KeyPrefix)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.IssuesTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	snapshots := repository.NewSnapshotRepository(db)
	moderationRepo := repository.NewModerationRepository(db)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	authSvc := service.NewAuthService(civicClient, cacheSvc, validate, logr, service.AuthConfig{
		JWTSecret:  cfg.Civic.JWTSecret,
		ProfileTTL: cfg.Cache.ProfileTTL,
	})
	issueSvc := service.NewIssueService(civicClient, snapshots, cacheSvc, metrics, validate, logr, service.IssueServiceConfig{
		CacheTTL: cfg.Cache.IssuesTTL,
	})
	moderationSvc := service.NewModerationService(civicClient, moderationRepo, issueSvc, snapshots, validate, logr)
	dashboardSvc := service.NewDashboardService(civicClient, issueSvc, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})
	exportSvc := service.NewExportService(issueSvc, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, validate, logr)

	if cfg.Sync.Enabled {
		syncSvc := service.NewSyncService(issueSvc, authSvc, metrics, logr.Named("sync"), service.SyncConfig{
			Workers:      cfg.Sync.Workers,
			Retries:      cfg.Sync.Retries,
			Cron:         cfg.Sync.Cron,
			ServiceToken: cfg.Sync.ServiceToken,
		})
		if err := syncSvc.Start(ctx); err != nil {
			logr.Fatal("failed to start snapshot sync", zap.Error(err))
		}
		defer syncSvc.Stop()
		issueSvc.SetRefreshScheduler(syncSvc)
	}

	go runExportCleanup(ctx, exportSvc, cfg.Exports.CleanupInterval, logr)

	checks := map[string]handler.Pinger{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := newRouter(cfg, logr, routerDeps{
		auth:       authSvc,
		metrics:    metrics,
		limiter:    limiter,
		authH:      handler.NewAuthHandler(authSvc),
		issueH:     handler.NewIssueHandler(issueSvc),
		adminH:     handler.NewAdminHandler(moderationSvc),
		dashboardH: handler.NewDashboardHandler(dashboardSvc),
		exportH:    handler.NewExportHandler(exportSvc),
		metricsH:   handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "civic", cfg.Civic.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := exports.Cleanup(0); err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}
