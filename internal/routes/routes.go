package routes

import (
	"net/http"

	"stock-movement-service/internal/config"
	"stock-movement-service/internal/handlers"
	"stock-movement-service/internal/middleware"
	"stock-movement-service/internal/models"
	"stock-movement-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies handlers y piezas compartidas que necesitan las rutas
type Dependencies struct {
	MovementHandler   *handlers.MovementHandler
	MonitoringHandler *handlers.MonitoringHandler
	HealthChecker     *middleware.HealthChecker
	Metrics           *services.Metrics
	Identity          config.IdentityConfig
	Logger            *zap.Logger
}

// SetupRoutes configura todas las rutas de la aplicación
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	v1 := router.Group("/api/v1")
	{
		internal := v1.Group("/internal")
		internal.Use(middleware.CredentialMiddleware(deps.Identity, deps.Logger))
		{
			movements := internal.Group("/stock-movement")
			{
				read := middleware.RequirePermission(middleware.Permission{
					Securable: middleware.SecurableStockMovement,
					Action:    middleware.ActionRead,
				}, deps.Logger)
				create := middleware.RequirePermission(middleware.Permission{
					Securable: middleware.SecurableStockMovement,
					Action:    middleware.ActionCreate,
				}, deps.Logger)
				update := middleware.RequirePermission(middleware.Permission{
					Securable: middleware.SecurableStockMovement,
					Action:    middleware.ActionUpdate,
				}, deps.Logger)

				movements.GET("", read, deps.MovementHandler.ListMovements)
				movements.POST("", create, deps.MovementHandler.CreateMovement)
				movements.GET("/:id", read, deps.MovementHandler.GetMovement)
				movements.POST("/:id/reverse", update, deps.MovementHandler.ReverseMovement)
			}
		}

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/metrics", deps.MonitoringHandler.GetMetrics)
			monitoring.GET("/metrics/summary", deps.MonitoringHandler.GetMetricsSummary)
			monitoring.GET("/ws", deps.MonitoringHandler.WebSocketMetrics)
		}
	}

	router.GET("/health", deps.HealthChecker.HealthCheck)
	router.GET("/health/monitoring", deps.MonitoringHandler.HealthCheck)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Stock Movement Service API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health":  "/health",
				"metrics": "/metrics",
				"api":     "/api/v1",
				"stock_movement": gin.H{
					"list":    "GET /api/v1/internal/stock-movement",
					"create":  "POST /api/v1/internal/stock-movement",
					"get":     "GET /api/v1/internal/stock-movement/:id",
					"reverse": "POST /api/v1/internal/stock-movement/:id/reverse",
				},
			},
		})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.NewErrorResponse("Route not found", nil))
	})
}
