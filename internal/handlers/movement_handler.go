package handlers

import (
	"errors"
	"net/http"

	"stock-movement-service/internal/middleware"
	"stock-movement-service/internal/models"
	"stock-movement-service/internal/services"
	"stock-movement-service/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MovementHandler maneja las peticiones HTTP de movimientos de stock
type MovementHandler struct {
	movementService services.MovementService
	validator       *validation.Validator
	logger          *zap.Logger
}

// NewMovementHandler crea una nueva instancia del handler
func NewMovementHandler(movementService services.MovementService, logger *zap.Logger) *MovementHandler {
	return &MovementHandler{
		movementService: movementService,
		validator:       validation.New(),
		logger:          logger,
	}
}

// ListMovements GET /stock-movement
func (h *MovementHandler) ListMovements(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "list_movements"))

	var req models.ListMovementsRequest
	if !h.bind(c, logger, &req) {
		return
	}

	cred, _ := middleware.GetCredential(c)
	resp, err := h.movementService.List(c.Request.Context(), cred, &req)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse(resp))
}

// CreateMovement POST /stock-movement
func (h *MovementHandler) CreateMovement(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "create_movement"))

	var req models.CreateMovementRequest
	if !h.bind(c, logger, &req) {
		return
	}

	cred, _ := middleware.GetCredential(c)
	resp, err := h.movementService.Create(c.Request.Context(), cred, &req)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse(resp))
}

// GetMovement GET /stock-movement/:id
func (h *MovementHandler) GetMovement(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_movement"))

	var req models.GetMovementRequest
	if !h.bind(c, logger, &req) {
		return
	}

	cred, _ := middleware.GetCredential(c)
	detail, err := h.movementService.Get(c.Request.Context(), cred, req.ID)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse(detail))
}

// ReverseMovement POST /stock-movement/:id/reverse
func (h *MovementHandler) ReverseMovement(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "reverse_movement"))

	var req models.ReverseMovementRequest
	if !h.bind(c, logger, &req) {
		return
	}

	cred, _ := middleware.GetCredential(c)
	resp, err := h.movementService.Reverse(c.Request.Context(), cred, req.ID, req.Reason)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse(resp))
}

// bind arma el bag del request y lo decodifica sobre dst; responde 400 si falla
func (h *MovementHandler) bind(c *gin.Context, logger *zap.Logger, dst interface{}) bool {
	bag, err := validation.FromGin(c)
	if err == nil {
		err = h.validator.Decode(bag, dst)
	}
	if err != nil {
		h.respondError(c, logger, err)
		return false
	}
	return true
}

// respondError traduce el error al status y sobre correspondientes
func (h *MovementHandler) respondError(c *gin.Context, logger *zap.Logger, err error) {
	if verr, ok := models.IsValidation(err); ok {
		logger.Debug("Validation failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.NewErrorResponse("Validation failed", verr.Fields))
		return
	}
	if bre, ok := models.IsBusinessRule(err); ok {
		logger.Info("Business rule rejected request", zap.String("message", bre.Message))
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(bre.Message, nil))
		return
	}
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.NewErrorResponse("Stock movement not found", nil))
		return
	}

	requestID, _ := c.Get(middleware.RequestIDKey)
	logger.Error("Unexpected error",
		zap.Error(err),
		zap.Any("request_id", requestID),
	)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, models.StatusGeneralError)
}
