package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/recruit-booking-api/api/swagger"
	"github.com/noah-isme/recruit-booking-api/internal/handler"
	"github.com/noah-isme/recruit-booking-api/internal/middleware"
	"github.com/noah-isme/recruit-booking-api/internal/models"
	"github.com/noah-isme/recruit-booking-api/internal/repository"
	"github.com/noah-isme/recruit-booking-api/internal/service"
	"github.com/noah-isme/recruit-booking-api/pkg/cache"
	"github.com/noah-isme/recruit-booking-api/pkg/config"
	"github.com/noah-isme/recruit-booking-api/pkg/database"
	"github.com/noah-isme/recruit-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/recruit-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/recruit-booking-api/pkg/middleware/requestid"
)

// @title Recruit Booking API
// @version 1.0.0
// @description Interview slot booking for phased recruiting events
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis only backs the phase cache; the core works without it.
		logr.Warn("redis unavailable, phase cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	eventRepo := repository.NewEventRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	userRepo := repository.NewUserRepository(db)
	rateLimitRepo := repository.NewRateLimitRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	rateLimitSvc := service.NewRateLimitService(rateLimitRepo, metricsSvc, logr, cfg.RateLimit)
	authSvc := service.NewAuthService(userRepo, rateLimitSvc, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	eventSvc := service.NewEventService(eventRepo, slotRepo, cacheRepo, logr, cfg.Booking.PhaseCacheTTL)
	notifySvc := service.NewNotificationService(logr)
	bookingSvc := service.NewBookingService(bookingRepo, metricsSvc, notifySvc, validate, logr, cfg.Booking.TxRetries)
	exportSvc := service.NewExportService(bookingRepo, eventRepo, logr)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	rateLimitSvc.StartJanitor(workerCtx)
	notifySvc.Start(workerCtx)
	defer notifySvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

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
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/login", authHandler.Login)
		auth.POST("/signup", authHandler.Signup)

		events := api.Group("/events")
		events.GET("", eventHandler.List)
		events.GET("/:id", eventHandler.Get)
		events.GET("/:id/slots", eventHandler.ListSlots)
		events.GET("/:id/phase", eventHandler.GetPhase)
		events.PUT("/:id/phase",
			middleware.JWT(authSvc),
			middleware.RequireRoles(models.RoleAdmin),
			eventHandler.SetPhase)
		events.GET("/:id/roster",
			middleware.JWT(authSvc),
			middleware.RequireRoles(models.RoleAdmin),
			exportHandler.Roster)

		bookings := api.Group("/bookings", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
		bookings.POST("", bookingHandler.Create)
		bookings.GET("", bookingHandler.List)
		bookings.DELETE("/:id", bookingHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
