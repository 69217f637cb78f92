package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Baaaki/wastetrack/internal/broker"
	"github.com/Baaaki/wastetrack/internal/config"
	"github.com/Baaaki/wastetrack/internal/database"
	"github.com/Baaaki/wastetrack/internal/emission"
	"github.com/Baaaki/wastetrack/internal/handler"
	"github.com/Baaaki/wastetrack/internal/middleware"
	"github.com/Baaaki/wastetrack/internal/repository"
	"github.com/Baaaki/wastetrack/internal/repository/filestore"
	"github.com/Baaaki/wastetrack/internal/service"
	"github.com/Baaaki/wastetrack/internal/utils"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		_ = logger.Init(true)
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}

	if err := logger.InitForEnvironment(cfg.Environment); err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Log.Info("Config loaded successfully",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.StorageDriver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports, people, closeStore := openStorage(cfg)
	defer closeStore()

	factors, err := emission.LoadFactorTable(cfg.EmissionFactorsPath)
	if err != nil {
		logger.Log.Fatal("Failed to load emission factors",
			zap.String("path", cfg.EmissionFactorsPath),
			zap.Error(err),
		)
	}

	tokens := utils.TokenConfig{
		Secret:   cfg.JWTSecret,
		Expiry:   cfg.JWTExpiry,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}
	opts := handler.RouteOptions{Tokens: tokens}

	// Redis is optional: without it there is no rate limiting and no live feed
	var events broker.EventBroker
	if cfg.RedisURL != "" {
		redisBroker, err := broker.NewRedisEventBrokerFromURL(ctx, cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize Redis broker", zap.Error(err))
		}
		defer redisBroker.Close()
		events = redisBroker

		redisOpts, _ := redis.ParseURL(cfg.RedisURL)
		limiterClient := redis.NewClient(redisOpts)
		defer limiterClient.Close()

		opts.AuthLimiter = middleware.NewRateLimiter(limiterClient, middleware.RateLimiterConfig{
			Name:        "auth",
			MaxRequests: cfg.AuthRateLimitMaxRequests,
			Window:      cfg.RateLimitWindow,
		})
		opts.APILimiter = middleware.NewRateLimiter(limiterClient, middleware.RateLimiterConfig{
			Name:        "api",
			MaxRequests: cfg.RateLimitMaxRequests,
			Window:      cfg.RateLimitWindow,
		})

		opts.Feed = handler.NewReportFeed(events, cfg.CORSOrigins)
		go func() {
			if err := opts.Feed.Run(ctx); err != nil {
				logger.Log.Error("Report feed stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Log.Warn("REDIS_URL not set: rate limiting and live report feed disabled")
	}

	services := handler.Services{
		People:  service.NewPersonService(people, tokens, cfg.Environment),
		Reports: service.NewReportService(reports, factors, events),
		Charts:  service.NewChartService(reports),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.HSTSMiddleware(cfg.IsProduction()))

	handler.RegisterRoutes(router, services, opts)

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("addr", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Log.Info("Server stopped")
}

// openStorage returns the repositories for the configured driver and a cleanup func.
func openStorage(cfg *config.Config) (repository.ReportRepository, repository.PersonRepository, func()) {
	if cfg.StorageDriver == config.StorageFile {
		store, err := filestore.Open(cfg.DataDir)
		if err != nil {
			logger.Log.Fatal("Failed to open file store",
				zap.String("dir", cfg.DataDir),
				zap.Error(err),
			)
		}
		return store.Reports(), store.People(), func() {}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Migration failed", zap.Error(err))
	}
	return repository.NewReportRepository(db), repository.NewPersonRepository(db), func() {
		database.Close(db)
	}
}
