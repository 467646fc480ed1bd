package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/univ-hub/attendance-api/api/swagger"
	"github.com/univ-hub/attendance-api/internal/handler"
	"github.com/univ-hub/attendance-api/internal/middleware"
	"github.com/univ-hub/attendance-api/internal/models"
	"github.com/univ-hub/attendance-api/internal/repository"
	"github.com/univ-hub/attendance-api/internal/service"
	"github.com/univ-hub/attendance-api/pkg/cache"
	"github.com/univ-hub/attendance-api/pkg/config"
	"github.com/univ-hub/attendance-api/pkg/database"
	"github.com/univ-hub/attendance-api/pkg/export"
	"github.com/univ-hub/attendance-api/pkg/logger"
	corsmiddleware "github.com/univ-hub/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/univ-hub/attendance-api/pkg/middleware/requestid"
	"github.com/univ-hub/attendance-api/pkg/storage"
)

// @title University Attendance API
// @version 1.0.0
// @description Student attendance ledger, justification reviews and exam eligibility
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard caching disabled", zap.Error(err))
		redisClient = nil
	}

	documents, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Fatal("failed to init document storage", zap.Error(err))
	}
	reports, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init report storage", zap.Error(err))
	}

	// Repositories.
	txManager := repository.NewTxManager(db)
	absenceRepo := repository.NewAbsenceRepository(db)
	justificationRepo := repository.NewJustificationRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	configurationRepo := repository.NewConfigurationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled && redisClient != nil)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	thresholdSvc := service.NewThresholdService(configurationRepo, courseRepo, auditRepo, cfg.Attendance.DefaultThreshold, logr)
	eligibilitySvc := service.NewEligibilityService(enrollmentRepo, absenceRepo, courseRepo, thresholdSvc, auditRepo, notificationSvc, cacheSvc, metricsSvc, logr)
	absenceSvc := service.NewAbsenceService(absenceRepo, enrollmentRepo, sessionRepo, justificationRepo, eligibilitySvc, auditRepo, txManager, cfg.Attendance, nil, logr)
	justificationSvc := service.NewJustificationService(justificationRepo, absenceRepo, enrollmentRepo, sessionRepo, documents, eligibilitySvc, notificationSvc, auditRepo, txManager, cfg.Attendance, nil, logr)
	exemptionSvc := service.NewExemptionService(enrollmentRepo, eligibilitySvc, auditRepo, txManager, logr)
	dashboardSvc := service.NewDashboardService(enrollmentRepo, courseRepo, eligibilitySvc, thresholdSvc, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	exportSvc := service.NewExportService(dashboardSvc, export.NewCSVExporter(), export.NewPDFExporter(), reports, logr)
	authSvc := service.NewAuthService(userRepo, auditRepo, cfg.JWT, nil, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	absenceHandler := handler.NewAbsenceHandler(absenceSvc)
	justificationHandler := handler.NewJustificationHandler(justificationSvc)
	eligibilityHandler := handler.NewEligibilityHandler(eligibilitySvc, enrollmentRepo, txManager)
	exemptionHandler := handler.NewExemptionHandler(exemptionSvc)
	thresholdHandler := handler.NewThresholdHandler(thresholdSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	auditHandler := handler.NewAuditHandler(auditRepo)
	courseHandler := handler.NewCourseHandler(courseRepo, enrollmentRepo)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.GET("/notifications", notificationHandler.List)
		authed.POST("/notifications/:id/read", notificationHandler.MarkRead)

		authed.POST("/justifications", justificationHandler.Submit)
		authed.GET("/enrollments/:enrollmentID/absences", absenceHandler.List)
		authed.GET("/enrollments/:enrollmentID/eligibility", eligibilityHandler.Get)
	}

	recording := authed.Group("")
	recording.Use(middleware.RequireCapability(models.CapabilityRecordAttendance))
	{
		recording.POST("/absences", absenceHandler.Record)
		recording.DELETE("/enrollments/:enrollmentID/sessions/:sessionID/absence", absenceHandler.Clear)
		recording.POST("/enrollments/:enrollmentID/eligibility/recalculate", eligibilityHandler.Recalculate)
	}

	reviewing := authed.Group("")
	reviewing.Use(middleware.RequireCapability(models.CapabilityReviewJustification))
	{
		reviewing.POST("/justifications/:id/decision", justificationHandler.Decide)
		reviewing.POST("/justifications/direct", justificationHandler.DirectEncode)
	}

	reporting := authed.Group("")
	reporting.Use(middleware.RequireCapability(models.CapabilityViewReports))
	{
		reporting.GET("/courses/:courseID", courseHandler.Get)
		reporting.GET("/courses/:courseID/enrollments", courseHandler.ListEnrollments)
		reporting.GET("/dashboard/courses/:courseID", dashboardHandler.CourseOverview)
		reporting.GET("/exports/courses/:courseID", exportHandler.CourseReport)
		reporting.GET("/audit", auditHandler.ListBySubject)
	}

	managing := authed.Group("")
	managing.Use(middleware.RequireCapability(models.CapabilityManageThresholds))
	{
		managing.GET("/thresholds/default", thresholdHandler.GetDefault)
		managing.PUT("/thresholds/default", thresholdHandler.SetDefault)
		managing.PUT("/courses/:courseID/threshold", thresholdHandler.SetCourseThreshold)
	}

	granting := authed.Group("")
	granting.Use(middleware.RequireCapability(models.CapabilityGrantExemption))
	{
		granting.POST("/enrollments/:enrollmentID/exemption", exemptionHandler.Grant)
		granting.DELETE("/enrollments/:enrollmentID/exemption", exemptionHandler.Revoke)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
