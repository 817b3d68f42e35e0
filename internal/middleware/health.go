package middleware

import (
	"context"
	"net/http"
	"time"

	"stock-movement-service/internal/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker postgresDB es nil con el motor en memoria; redisDB es nil sin L2
type HealthChecker struct {
	engine     string
	postgresDB *database.PostgresDB
	redisDB    *database.RedisDB
	logger     *zap.Logger
}

func NewHealthChecker(engine string, postgresDB *database.PostgresDB, redisDB *database.RedisDB, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		engine:     engine,
		postgresDB: postgresDB,
		redisDB:    redisDB,
		logger:     logger,
	}
}

func (h *HealthChecker) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := gin.H{}
	status := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"engine":    h.engine,
		"services":  services,
	}

	if h.postgresDB != nil {
		postgresStatus := "healthy"
		if err := h.postgresDB.Ping(ctx); err != nil {
			postgresStatus = "unhealthy"
			status["status"] = "unhealthy"
			h.logger.Error("PostgreSQL health check failed", zap.Error(err))
		}

		stats := h.postgresDB.GetStats()
		services["postgresql"] = gin.H{
			"status": postgresStatus,
			"stats": gin.H{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
			},
		}
	}

	// Redis solo degrada: el caché es opcional
	if h.redisDB != nil {
		redisStatus := "healthy"
		if err := h.redisDB.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
			if status["status"] == "healthy" {
				status["status"] = "degraded"
			}
			h.logger.Warn("Redis health check failed", zap.Error(err))
		}
		services["redis"] = gin.H{"status": redisStatus}
	}

	httpStatus := http.StatusOK
	if status["status"] == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, status)
}
