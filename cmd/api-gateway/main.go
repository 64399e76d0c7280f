package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/campus-ops-api/api/swagger"
	"github.com/noah-isme/campus-ops-api/internal/handler"
	"github.com/noah-isme/campus-ops-api/internal/middleware"
	"github.com/noah-isme/campus-ops-api/internal/models"
	"github.com/noah-isme/campus-ops-api/internal/repository"
	"github.com/noah-isme/campus-ops-api/internal/service"
	"github.com/noah-isme/campus-ops-api/pkg/cache"
	"github.com/noah-isme/campus-ops-api/pkg/config"
	"github.com/noah-isme/campus-ops-api/pkg/database"
	"github.com/noah-isme/campus-ops-api/pkg/export"
	"github.com/noah-isme/campus-ops-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-ops-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-ops-api/pkg/storage"
)

// @title Campus Ops API
// @version 1.0.0
// @description Campus operations backend: rosters, timetables, fees and gate entry control
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DefaultTTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	gateEventRepo := repository.NewGateEventRepository(db)
	userRepo := repository.NewUserRepository(db)

	conflictSvc := service.NewConflictService(classRepo, timetableRepo, logr)
	classSvc := service.NewClassService(classRepo, conflictSvc, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, classRepo, conflictSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, validate, logr)
	var receiptArchive interface {
		Save(filename string, data []byte) (string, error)
	}
	if cfg.Receipts.ArchiveDir != "" {
		local, err := storage.NewLocalStorage(cfg.Receipts.ArchiveDir)
		if err != nil {
			logr.Sugar().Warnw("receipt archive unavailable", "dir", cfg.Receipts.ArchiveDir, "error", err)
		} else {
			receiptArchive = local
		}
	}
	feeSvc := service.NewFeeService(feeRepo, studentRepo, export.NewPDFExporter(), receiptArchive, validate, logr)

	gateRecorder := service.NewGateEventRecorder(gateEventRepo, logr, cfg.Gate.EventWorkers, cfg.Gate.EventBufferSize)
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	gateRecorder.Start(recorderCtx)

	gateSvc := service.NewGateService(studentRepo, feeRepo, feeRepo, classRepo, timetableRepo, gateEventRepo, gateRecorder, cacheSvc, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-ops-api",
	})

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	classHandler := handler.NewClassHandler(classSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	feeHandler := handler.NewFeeHandler(feeSvc)
	gateHandler := handler.NewGateHandler(gateSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// The scan terminal authenticates with a device token at the network
	// layer, not per-operator JWT.
	api.POST("/gate/scan", gateHandler.Scan)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		admin := middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin))
		staff := middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), string(models.RoleTeacher))

		protected.GET("/students", staff, studentHandler.List)
		protected.GET("/students/:id", staff, studentHandler.Get)
		protected.POST("/students", admin, studentHandler.Create)
		protected.PUT("/students/:id", admin, studentHandler.Update)
		protected.DELETE("/students/:id", admin, studentHandler.Delete)

		protected.GET("/classes", staff, classHandler.List)
		protected.GET("/classes/:id", staff, classHandler.Get)
		protected.POST("/classes", admin, classHandler.Create)
		protected.PUT("/classes/:id", admin, classHandler.Update)
		protected.DELETE("/classes/:id", admin, classHandler.Delete)

		protected.GET("/timetable", staff, timetableHandler.List)
		protected.GET("/classes/:id/timetable", staff, timetableHandler.ListByClass)
		protected.GET("/classes/:id/timetable/export", staff, timetableHandler.ExportByClass)
		protected.POST("/timetable", admin, timetableHandler.Create)
		protected.POST("/timetable/generate", admin, timetableHandler.Generate)
		protected.PUT("/timetable/:id", admin, timetableHandler.Update)
		protected.DELETE("/timetable/:id", admin, timetableHandler.Delete)

		protected.GET("/fees", admin, feeHandler.ListFees)
		protected.POST("/fees", admin, feeHandler.CreateFee)
		protected.DELETE("/fees/:id", admin, feeHandler.DeleteFee)
		protected.GET("/students/:id/fees/totals", staff, feeHandler.Totals)
		protected.GET("/students/:id/payments", admin, feeHandler.ListPayments)
		protected.POST("/payments", admin, feeHandler.RecordPayment)
		if cfg.Receipts.PDFEnabled {
			protected.GET("/receipts/:id/pdf", admin, feeHandler.ReceiptPDF)
		}

		protected.GET("/gate/events", staff, gateHandler.Events)
		protected.GET("/system/status", admin, metricsHandler.Status)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}

	stopRecorder()
	gateRecorder.Stop()
}
