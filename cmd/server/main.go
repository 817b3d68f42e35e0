package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stock-movement-service/internal/cache"
	"stock-movement-service/internal/config"
	"stock-movement-service/internal/database"
	"stock-movement-service/internal/handlers"
	"stock-movement-service/internal/middleware"
	"stock-movement-service/internal/repository"
	"stock-movement-service/internal/routes"
	"stock-movement-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.GinMode)

	// Motor transaccional
	var engine repository.MovementEngine
	var postgresDB *database.PostgresDB
	switch cfg.Database.Engine {
	case config.EngineMemory:
		engine = repository.NewMemoryEngine(repository.WithOpenCatalog())
		logger.Warn("Using in-memory engine, data is lost on restart")
	default:
		postgresDB = database.NewPostgresDB(
			cfg.Database.URL,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
			logger,
		)
		if cfg.Database.AutoMigrate {
			if err := postgresDB.Migrate(context.Background()); err != nil {
				logger.Fatal("Failed to apply migrations", zap.Error(err))
			}
		}
		engine = repository.NewPostgresEngine(postgresDB)
	}

	// Redis es opcional: sin REDIS_URL el caché queda solo en memoria
	var redisDB *database.RedisDB
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisDB, err = database.NewRedisDB(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PingTimeout, logger)
		if err != nil {
			logger.Warn("Redis unavailable, continuing with L1 cache only", zap.Error(err))
			redisDB = nil
		} else {
			redisClient = redisDB.Client
		}
	}

	movementCache := cache.NewMovementCache(redisClient, cfg.Cache.L1Size, cfg.Cache.TTL, logger)
	metrics := services.NewMetrics()

	monitoringService := services.NewMonitoringService(logger, cfg, redisClient, postgresDB, engine.Name(), movementCache, metrics)
	movementService := services.NewMovementService(engine, movementCache, monitoringService, logger)

	movementHandler := handlers.NewMovementHandler(movementService, logger)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService, logger)
	healthChecker := middleware.NewHealthChecker(engine.Name(), postgresDB, redisDB, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(monitoringHandler.RecordRequestMiddleware())

	routes.SetupRoutes(router, routes.Dependencies{
		MovementHandler:   movementHandler,
		MonitoringHandler: monitoringHandler,
		HealthChecker:     healthChecker,
		Metrics:           metrics,
		Identity:          cfg.Identity,
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		middleware.ServerInfo(cfg.Server.Port, engine.Name(), redisClient != nil, logger)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	movementCache.Close()
	if postgresDB != nil {
		if err := postgresDB.Close(); err != nil {
			logger.Error("Failed to close database pool", zap.Error(err))
		}
	}
	if redisDB != nil {
		if err := redisDB.Close(); err != nil {
			logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// newLogger producción por defecto, desarrollo con GIN_MODE=debug
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Server.GinMode == gin.DebugMode {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
