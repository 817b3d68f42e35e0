package handlers

import (
	"net/http"
	"time"

	"stock-movement-service/internal/models"
	"stock-movement-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type MonitoringHandler struct {
	monitoringService services.MonitoringService
	logger            *zap.Logger
}

func NewMonitoringHandler(monitoringService services.MonitoringService, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitoringService: monitoringService,
		logger:            logger,
	}
}

// GetMetrics maneja la petición HTTP para obtener métricas
func (h *MonitoringHandler) GetMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_metrics"))

	ctx := c.Request.Context()
	metrics := h.monitoringService.GetMetrics(ctx)

	logger.Info("Métricas obtenidas exitosamente",
		zap.Int("total_requests", metrics.Requests.TotalRequests),
		zap.Int("total_endpoints", metrics.Requests.Total),
		zap.String("avg_response_time", metrics.Performance.AvgResponseTimeMs))

	c.JSON(http.StatusOK, metrics)
}

// Intervalo de envío del stream de métricas
var metricsInterval = 10 * time.Second

var upgrader = websocket.Upgrader{
	// Servicio interno detrás del gateway
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMetrics maneja la conexión WebSocket para métricas en tiempo real
func (h *MonitoringHandler) WebSocketMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "websocket_metrics"))

	// Actualizar a WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Error actualizando a WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Info("Conexión WebSocket establecida")

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	// El cliente no envía datos; leer solo detecta el cierre
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	send := func() error {
		metrics := h.monitoringService.GetMetrics(ctx)
		if err := conn.WriteJSON(metrics); err != nil {
			return err
		}
		logger.Debug("Métricas enviadas por WebSocket",
			zap.Int("total_requests", metrics.Requests.TotalRequests),
			zap.String("timestamp", metrics.Timestamp))
		return nil
	}

	if err := send(); err != nil {
		logger.Error("Error enviando métricas por WebSocket", zap.Error(err))
		return
	}

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := send(); err != nil {
				logger.Error("Error enviando métricas por WebSocket", zap.Error(err))
				return
			}

		case <-closed:
			logger.Info("Conexión WebSocket cerrada por el cliente")
			return

		case <-ctx.Done():
			logger.Info("Conexión WebSocket cerrada por contexto")
			return
		}
	}
}

// RecordRequestMiddleware middleware para registrar requests
func (h *MonitoringHandler) RecordRequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)

		path := c.Request.URL.Path
		if h.shouldSkipMonitoring(path) {
			return
		}

		// Ruta registrada (/:id) para no abrir una serie por id
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = path
		}

		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}

		h.monitoringService.RecordRequest(models.RequestData{
			Endpoint:   endpoint,
			Method:     c.Request.Method,
			Duration:   duration,
			StatusCode: c.Writer.Status(),
			Timestamp:  time.Now(),
			Error:      err,
		})
	}
}

// shouldSkipMonitoring determina si un endpoint debe ser excluido del monitoring
func (h *MonitoringHandler) shouldSkipMonitoring(path string) bool {
	excludedPaths := []string{
		"/api/v1/monitoring/metrics",
		"/api/v1/monitoring/metrics/summary",
		"/api/v1/monitoring/ws",
		"/health/monitoring",
		"/health",
		"/metrics",
		"/",
	}

	for _, excludedPath := range excludedPaths {
		if path == excludedPath {
			return true
		}
	}

	return false
}

// HealthCheck endpoint de health check
func (h *MonitoringHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	services := gin.H{
		"database": "online",
		"redis":    "online",
		"cache":    "online",
	}
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0",
		"services":  services,
	}

	redisMetrics := h.monitoringService.GetRedisStats(ctx)
	switch {
	case redisMetrics.Status == "disabled":
		services["redis"] = "disabled"
	case !redisMetrics.Connected:
		services["redis"] = "offline"
		health["status"] = "degraded"
	}

	dbMetrics := h.monitoringService.GetDatabaseStats()
	services["database"] = dbMetrics.Status
	services["engine"] = dbMetrics.Engine

	cacheMetrics := h.monitoringService.GetCacheStats()
	services["cache"] = cacheMetrics.Status

	c.JSON(http.StatusOK, health)
}

// GetMetricsSummary endpoint para métricas resumidas
func (h *MonitoringHandler) GetMetricsSummary(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_metrics_summary"))

	ctx := c.Request.Context()
	metrics := h.monitoringService.GetMetrics(ctx)

	summary := gin.H{
		"requests": gin.H{
			"total":         metrics.Requests.TotalRequests,
			"endpoints":     metrics.Requests.Total,
			"errors":        metrics.Requests.ErrorsCount,
			"slow_requests": metrics.Requests.SlowRequestsCount,
		},
		"performance": gin.H{
			"avg_response_time": metrics.Performance.AvgResponseTimeMs,
			"max_response_time": metrics.Performance.MaxResponseTimeMs,
			"min_response_time": metrics.Performance.MinResponseTimeMs,
		},
		"cache": gin.H{
			"hit_rate":   metrics.Cache.HitRatePercentage,
			"total_keys": metrics.Cache.TotalKeys,
			"status":     metrics.Cache.Status,
		},
		"database": gin.H{
			"engine":           metrics.Database.Engine,
			"open_connections": metrics.Database.OpenConnections,
			"total_queries":    metrics.Database.TotalQueries,
			"status":           metrics.Database.Status,
		},
		"movements": gin.H{
			"total":        metrics.Movements.Total,
			"by_operation": metrics.Movements.ByOperation,
			"by_outcome":   metrics.Movements.ByOutcome,
		},
		"system": gin.H{
			"memory_usage": metrics.System.MemoryUsage,
			"uptime":       metrics.System.UptimeHours,
			"platform":     metrics.System.Platform,
		},
		"redis": gin.H{
			"connected": metrics.Redis.Connected,
			"keys":      metrics.Redis.Keys,
			"memory":    metrics.Redis.MemoryMB,
			"status":    metrics.Redis.Status,
		},
		"timestamp": metrics.Timestamp,
	}

	logger.Info("Resumen de métricas generado",
		zap.Int("total_requests", metrics.Requests.TotalRequests),
		zap.String("avg_response_time", metrics.Performance.AvgResponseTimeMs))

	c.JSON(http.StatusOK, summary)
}
