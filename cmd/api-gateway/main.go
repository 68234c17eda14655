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

	_ "github.com/noah-isme/crams-api/api/swagger"
	"github.com/noah-isme/crams-api/internal/handler"
	"github.com/noah-isme/crams-api/internal/middleware"
	"github.com/noah-isme/crams-api/internal/realtime"
	"github.com/noah-isme/crams-api/internal/repository"
	"github.com/noah-isme/crams-api/internal/service"
	"github.com/noah-isme/crams-api/pkg/cache"
	"github.com/noah-isme/crams-api/pkg/config"
	"github.com/noah-isme/crams-api/pkg/database"
	"github.com/noah-isme/crams-api/pkg/jobs"
	"github.com/noah-isme/crams-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/crams-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/crams-api/pkg/middleware/requestid"
)

// @title CRAMS API
// @version 1.0.0
// @description Course Registration and Advising Management System
// @BasePath /api/v1
// @schemes http
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		version, err := database.Migrate(db, cfg.Database.MigrationsPath)
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied", zap.Uint("version", version))
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cacheRepo != nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cacheSvc.Enabled() {
		invalidations := jobs.NewQueue("cache-invalidation", cacheSvc.RetryInvalidation, jobs.QueueConfig{
			MaxRetries: 5,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		invalidations.Start(ctx)
		defer invalidations.Stop()
		cacheSvc.UseRetryQueue(invalidations)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	assignmentRepo := repository.NewAdvisorAssignmentRepository(db)
	reportRepo := repository.NewReportRepository(db)

	var hub *realtime.Hub
	var publisher service.NotificationPublisher
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(cfg.CORS.AllowedOrigins, metricsSvc, logr)
		defer hub.Close()
		publisher = hub
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		Issuer:             cfg.JWT.Issuer,
		EnforceRoleDomains: cfg.Registration.EnforceRoleDomains,
	})
	ledger := service.NewEnrollmentLedger(service.LedgerDeps{
		Courses:       courseRepo,
		Selections:    selectionRepo,
		Notifications: notificationRepo,
		Assignments:   assignmentRepo,
		Tx:            db,
		Publisher:     publisher,
		Cache:         cacheSvc,
		Metrics:       metricsSvc,
		Validator:     validate,
		Logger:        logr,
	})
	courseSvc := service.NewCourseService(courseRepo, ledger, cacheSvc, validate, logr)
	selectionSvc := service.NewSelectionService(selectionRepo)
	advisorSvc := service.NewAdvisorService(service.AdvisorServiceDeps{
		Users:         userRepo,
		Assignments:   assignmentRepo,
		Selections:    selectionRepo,
		Notifications: notificationRepo,
		Tx:            db,
		Publisher:     publisher,
		Validator:     validate,
		Logger:        logr,
	})
	reportSvc := service.NewReportService(reportRepo, selectionRepo, cacheSvc, logr, service.ReportServiceConfig{
		CacheTTL:          cfg.Cache.TTL,
		NearCapacityRatio: cfg.Capacity.NearCapacityRatio,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo)

	notificationHandler := handler.NewNotificationHandler(notificationSvc, nil)
	if hub != nil {
		notificationHandler = handler.NewNotificationHandler(notificationSvc, hub)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.ResponseMeta())

	registerRoutes(r, handlers{
		auth:          handler.NewAuthHandler(authSvc),
		courses:       handler.NewCourseHandler(courseSvc, ledger),
		selections:    handler.NewSelectionHandler(ledger, selectionSvc),
		advisors:      handler.NewAdvisorHandler(advisorSvc),
		admin:         handler.NewAdminHandler(reportSvc, ledger),
		users:         handler.NewUserHandler(userSvc),
		notifications: notificationHandler,
		health:        handler.NewHealthHandler(db, metricsSvc),
	}, authSvc, routeOptions{
		prefix:  cfg.APIPrefix,
		docs:    cfg.Env != config.EnvProduction,
		metrics: cfg.Metrics.Enabled,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
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
