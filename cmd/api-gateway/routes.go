package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/internal/handler"
	"github.com/noah-isme/smart-haryana-gateway/internal/middleware"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	"github.com/noah-isme/smart-haryana-gateway/internal/repository"
	"github.com/noah-isme/smart-haryana-gateway/internal/service"
	"github.com/noah-isme/smart-haryana-gateway/pkg/config"
	"github.com/noah-isme/smart-haryana-gateway/pkg/logger"
	corsmiddleware "github.com/noah-isme/smart-haryana-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/smart-haryana-gateway/pkg/middleware/requestid"
)

type routerDeps struct {
	auth    middleware.SessionResolver
	metrics *service.MetricsService
	limiter *repository.RateLimitRepository

	authH      *handler.AuthHandler
	issueH     *handler.IssueHandler
	adminH     *handler.AdminHandler
	dashboardH *handler.DashboardHandler
	exportH    *handler.ExportHandler
	metricsH   *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.metricsH.Health)
	r.GET("/ready", deps.metricsH.Ready)
	r.GET("/metrics", deps.metricsH.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", deps.authH.Login)
	api.GET("/exports/:token", deps.exportH.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))
	secured.GET("/auth/me", deps.authH.Me)
	secured.GET("/issues", deps.issueH.List)
	secured.GET("/issues/:id", deps.issueH.Get)
	secured.GET("/dashboard", deps.dashboardH.Get)
	secured.POST("/exports", deps.exportH.Create)

	// nil when Redis is down; RateLimit then lets requests through.
	var limiter middleware.RateLimiter
	if deps.limiter != nil {
		limiter = deps.limiter
	}

	citizen := secured.Group("")
	citizen.Use(middleware.RequireRoles(models.RoleClient))
	citizen.POST("/issues",
		middleware.RateLimit(limiter, "issues", cfg.RateLimit.IssuesPerDay, 24*time.Hour, deps.metrics, logr),
		middleware.Audit(logr, "issue.create"),
		deps.issueH.Create,
	)
	citizen.POST("/issues/:id/feedback", middleware.Audit(logr, "issue.feedback"), deps.issueH.Feedback)
	citizen.POST("/issues/:id/verify", middleware.Audit(logr, "issue.verify"), deps.issueH.Verify)

	worker := secured.Group("/worker")
	worker.Use(middleware.RequireRoles(models.RoleWorker))
	worker.POST("/tasks/:id/complete", middleware.Audit(logr, "task.complete"), deps.issueH.Complete)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireStaff())
	admin.GET("/workers", deps.adminH.Workers)
	admin.GET("/metrics", deps.metricsH.Summary)
	admin.PUT("/issues/:id/assign", middleware.Audit(logr, "issue.reassign"), deps.adminH.Reassign)
	admin.DELETE("/issues/:id", middleware.Audit(logr, "issue.delete"), deps.adminH.Delete)
	admin.GET("/issues/:id/moderation", deps.adminH.History)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})
	return r
}
