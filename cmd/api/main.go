package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "stockreport/api/swagger" // swagger docs
	"stockreport/internal/config"
	"stockreport/internal/database"
	"stockreport/internal/handler"
	"stockreport/internal/mailer"
	"stockreport/internal/middleware"
	"stockreport/internal/otp"
	"stockreport/internal/repository"
	"stockreport/internal/service"
	"stockreport/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Daily Product Report API
// @version         1.0
// @description     Officials submit daily product quantities; every edit within 48 hours is kept as field-level history.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid APP_TIMEZONE")
	}

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer database.Close(db)
	log.Info().Msg("connected to PostgreSQL")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	var rdb *redis.Client
	var codes otp.Store = otp.NewDBStore(userRepo)
	if cfg.RedisURL != "" {
		rdb, err = database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer func() { _ = rdb.Close() }()
		codes = otp.NewRedisStore(rdb)
		log.Info().Msg("password reset codes stored in redis")
	}

	mail := mailer.New(cfg)
	if !mail.Configured() {
		log.Warn().Msg("SMTP_HOST not set, password reset emails will fail")
	}

	wsHub := websocket.NewHub(cfg.AllowedOrigins())
	go wsHub.Run(ctx)

	authService := service.NewAuthService(userRepo, codes, mail, service.AuthConfig{
		JWTSecret:               cfg.JWTSecret,
		TokenTTL:                cfg.JWTTTL(),
		OfficialRegistrationKey: cfg.OfficialRegistrationKey,
		OTPTTL:                  cfg.OTPTTL(),
	})
	reportService := service.NewReportService(service.ReportServiceDeps{
		Reports:  reportRepo,
		Products: productRepo,
		Audit:    auditRepo,
		Tx:       txManager,
		Events:   wsHub,
		Location: loc,
		Timeout:  cfg.QueryTimeout,
	})
	exportService := service.NewExportService(reportService, loc)
	productService := service.NewProductService(productRepo, reportRepo, auditRepo, txManager)
	auditService := service.NewAuditService(auditRepo)

	requireAuth := middleware.RequireAuth(authService)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, requireAuth, cfg.JWTTTL(), cfg.IsProduction())
	reportHandler := handler.NewReportHandler(reportService, exportService, requireAuth)
	productHandler := handler.NewProductHandler(productService, requireAuth)
	auditHandler := handler.NewAuditHandler(auditService, requireAuth)
	pageHandler := handler.NewPageHandler(cfg.StaticDir)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recovery(), middleware.Logger(), middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", handler.Health(db, rdb))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", websocket.ServeWs(wsHub, authService))

	api := router.Group("/api")
	authHandler.RegisterRoutes(api)
	reportHandler.RegisterRoutes(api)
	productHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	if cfg.StaticDir != "" {
		pageHandler.RegisterRoutes(&router.RouterGroup)
	}
	router.NoRoute(pageHandler.NotFound)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// setupLogger writes human-readable logs in development and JSON in production.
func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
