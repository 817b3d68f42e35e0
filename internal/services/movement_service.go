package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-movement-service/internal/models"
	"stock-movement-service/internal/repository"

	"go.uber.org/zap"
)

// Nombres de operación usados en logs y métricas
const (
	OpCreate  = "create"
	OpList    = "list"
	OpGet     = "get"
	OpReverse = "reverse"
)

// MovementService casos de uso de movimientos de stock. Toda operación corre
// con la credencial resuelta en el borde HTTP.
type MovementService interface {
	Create(ctx context.Context, cred models.Credential, req *models.CreateMovementRequest) (*models.CreateMovementResponse, error)
	List(ctx context.Context, cred models.Credential, req *models.ListMovementsRequest) (*models.ListMovementsResponse, error)
	Get(ctx context.Context, cred models.Credential, id int64) (*models.StockMovementDetail, error)
	Reverse(ctx context.Context, cred models.Credential, id int64, reason string) (*models.ReverseMovementResponse, error)
}

// DetailCache caché del detalle; cache.MovementCache lo implementa
type DetailCache interface {
	GetMovement(ctx context.Context, idAccount, idStockMovement int64) (*models.StockMovementDetail, error)
	SetMovement(ctx context.Context, detail *models.StockMovementDetail) error
	InvalidateMovement(ctx context.Context, idAccount, idStockMovement int64) error
}

type movementService struct {
	engine   repository.MovementEngine
	cache    DetailCache
	recorder OperationRecorder
	logger   *zap.Logger
}

// NewMovementService cache y recorder son opcionales
func NewMovementService(engine repository.MovementEngine, cache DetailCache, recorder OperationRecorder, logger *zap.Logger) MovementService {
	return &movementService{
		engine:   engine,
		cache:    cache,
		recorder: recorder,
		logger:   logger,
	}
}

// Create registra un movimiento. No es idempotente: cada llamada agrega una fila.
func (s *movementService) Create(ctx context.Context, cred models.Credential, req *models.CreateMovementRequest) (*models.CreateMovementResponse, error) {
	start := time.Now()
	logger := s.logger.With(
		zap.String("operation", OpCreate),
		zap.Int64("id_account", cred.IDAccount),
		zap.Int64("id_product", req.IDProduct),
	)

	movement, err := newMovement(cred, req)
	if err != nil {
		s.finish(logger, OpCreate, start, err)
		return nil, err
	}

	id, err := s.engine.CreateMovement(ctx, movement)
	if err != nil {
		err = s.translate(OpCreate, err)
		s.finish(logger, OpCreate, start, err)
		return nil, err
	}

	s.finish(logger.With(zap.Int64("id_stock_movement", id)), OpCreate, start, nil)
	return &models.CreateMovementResponse{IDStockMovement: id}, nil
}

// List devuelve una página del ledger con el saldo acumulado por fila
func (s *movementService) List(ctx context.Context, cred models.Credential, req *models.ListMovementsRequest) (*models.ListMovementsResponse, error) {
	start := time.Now()
	logger := s.logger.With(
		zap.String("operation", OpList),
		zap.Int64("id_account", cred.IDAccount),
	)

	filter, err := newFilter(cred, req)
	if err != nil {
		s.finish(logger, OpList, start, err)
		return nil, err
	}

	movements, total, err := s.engine.ListMovements(ctx, filter)
	if err != nil {
		err = s.translate(OpList, err)
		s.finish(logger, OpList, start, err)
		return nil, err
	}
	if movements == nil {
		movements = []*models.StockMovement{}
	}

	s.finish(logger.With(zap.Int("total_records", total), zap.Int("returned", len(movements))), OpList, start, nil)
	return &models.ListMovementsResponse{
		Movements:  movements,
		Pagination: models.NewPagination(total, filter.PageSize, filter.PageNumber),
	}, nil
}

// Get devuelve el detalle. Ids inexistentes y de otra cuenta dan el mismo ErrNotFound.
func (s *movementService) Get(ctx context.Context, cred models.Credential, id int64) (*models.StockMovementDetail, error) {
	start := time.Now()
	logger := s.logger.With(
		zap.String("operation", OpGet),
		zap.Int64("id_account", cred.IDAccount),
		zap.Int64("id_stock_movement", id),
	)

	if s.cache != nil {
		if detail, err := s.cache.GetMovement(ctx, cred.IDAccount, id); err == nil {
			s.finish(logger.With(zap.Bool("cached", true)), OpGet, start, nil)
			return detail, nil
		}
	}

	detail, err := s.engine.GetMovement(ctx, cred.IDAccount, id)
	if err != nil {
		err = s.translate(OpGet, err)
		s.finish(logger, OpGet, start, err)
		return nil, err
	}

	// el caché descarta detalles no asentados; una reversión concurrente no deja datos viejos
	if s.cache != nil {
		if err := s.cache.SetMovement(ctx, detail); err != nil {
			logger.Warn("Failed to cache movement detail", zap.Error(err))
		}
	}

	s.finish(logger, OpGet, start, nil)
	return detail, nil
}

// Reverse agrega el movimiento compensatorio e invalida el detalle cacheado del original
func (s *movementService) Reverse(ctx context.Context, cred models.Credential, id int64, reason string) (*models.ReverseMovementResponse, error) {
	start := time.Now()
	logger := s.logger.With(
		zap.String("operation", OpReverse),
		zap.Int64("id_account", cred.IDAccount),
		zap.Int64("id_stock_movement", id),
	)

	if strings.TrimSpace(reason) == "" {
		verr := &models.ValidationError{}
		verr.Add("reason", "is required")
		s.finish(logger, OpReverse, start, verr)
		return nil, verr
	}

	reversalID, err := s.engine.ReverseMovement(ctx, &models.Reversal{
		IDAccount:       cred.IDAccount,
		IDUser:          cred.IDUser,
		IDStockMovement: id,
		Reason:          reason,
	})
	if err != nil {
		err = s.translate(OpReverse, err)
		s.finish(logger, OpReverse, start, err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateMovement(ctx, cred.IDAccount, id); err != nil {
			logger.Warn("Failed to invalidate cached movement", zap.Error(err))
		}
	}

	s.finish(logger.With(zap.Int64("id_reversal_movement", reversalID)), OpReverse, start, nil)
	return &models.ReverseMovementResponse{IDReversalMovement: reversalID}, nil
}

// translate deja pasar los errores reconocidos y envuelve el resto
func (s *movementService) translate(operation string, err error) error {
	if _, ok := models.IsBusinessRule(err); ok {
		return err
	}
	if _, ok := models.IsValidation(err); ok {
		return err
	}
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	return fmt.Errorf("%s stock movement on %s engine: %w", operation, s.engine.Name(), err)
}

// finish registra el resultado en el log y en las métricas
func (s *movementService) finish(logger *zap.Logger, operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := Outcome(err)

	if s.recorder != nil {
		s.recorder.RecordOperation(operation, outcome, elapsed)
	}

	fields := []zap.Field{zap.String("outcome", outcome), zap.Duration("duration", elapsed)}
	switch outcome {
	case models.OutcomeSuccess:
		logger.Info("Stock movement operation completed", fields...)
	case models.OutcomeError:
		logger.Error("Stock movement operation failed", append(fields, zap.Error(err))...)
	default:
		logger.Info("Stock movement operation rejected", append(fields, zap.Error(err))...)
	}
}

// Outcome clasifica un error para logs y métricas
func Outcome(err error) string {
	if err == nil {
		return models.OutcomeSuccess
	}
	if _, ok := models.IsValidation(err); ok {
		return models.OutcomeValidation
	}
	if _, ok := models.IsBusinessRule(err); ok {
		return models.OutcomeBusinessRule
	}
	if errors.Is(err, models.ErrNotFound) {
		return models.OutcomeNotFound
	}
	return models.OutcomeError
}

// newMovement normaliza el request; Adjustment sin motivo falla aquí, antes del motor
func newMovement(cred models.Credential, req *models.CreateMovementRequest) (*models.NewMovement, error) {
	verr := &models.ValidationError{}

	if req.IDProduct <= 0 {
		verr.Add("idProduct", "must be greater than 0")
	}
	if req.MovementType == nil {
		verr.Add("movementType", "is required")
	} else if !req.MovementType.Valid() {
		verr.Add("movementType", "must be between 0 and 4")
	}
	if req.Quantity == nil {
		verr.Add("quantity", "is required")
	} else if !models.QuantityFits(*req.Quantity) {
		verr.Add("quantity", models.QuantityRangeMessage)
	}
	if req.MovementType != nil && *req.MovementType == models.MovementAdjustment &&
		(req.Reason == nil || strings.TrimSpace(*req.Reason) == "") {
		verr.Add("reason", "is required for adjustment movements")
	}

	var expiration *models.Date
	if req.ExpirationDate != nil && strings.TrimSpace(*req.ExpirationDate) != "" {
		d, err := models.ParseDate(*req.ExpirationDate)
		if err != nil {
			verr.Add("expirationDate", "must be a date (YYYY-MM-DD)")
		} else {
			expiration = &d
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	return &models.NewMovement{
		IDAccount:         cred.IDAccount,
		IDUser:            cred.IDUser,
		IDProduct:         req.IDProduct,
		MovementType:      *req.MovementType,
		Quantity:          *req.Quantity,
		Reason:            req.Reason,
		ReferenceDocument: req.ReferenceDocument,
		Lot:               req.Lot,
		ExpirationDate:    expiration,
	}, nil
}

// newFilter aplica los defaults del listado. endDate incluye el día completo.
func newFilter(cred models.Credential, req *models.ListMovementsRequest) (*models.MovementFilter, error) {
	verr := &models.ValidationError{}

	filter := &models.MovementFilter{
		IDAccount:    cred.IDAccount,
		IDProduct:    req.IDProduct,
		MovementType: req.MovementType,
		IDUser:       req.IDUser,
		SortOrder:    models.SortDateDesc,
		PageSize:     models.DefaultPageSize,
		PageNumber:   models.DefaultPageNumber,
	}

	if req.SortOrder != nil && *req.SortOrder != "" {
		filter.SortOrder = models.SortOrder(*req.SortOrder)
	}
	if req.PageSize != nil {
		if *req.PageSize < 1 || *req.PageSize > models.MaxPageSize {
			verr.Add("pageSize", fmt.Sprintf("must be between 1 and %d", models.MaxPageSize))
		}
		filter.PageSize = *req.PageSize
	}
	if req.PageNumber != nil {
		if *req.PageNumber < 1 {
			verr.Add("pageNumber", "must be at least 1")
		}
		filter.PageNumber = *req.PageNumber
	}
	if req.MovementType != nil && !req.MovementType.Valid() {
		verr.Add("movementType", "must be between 0 and 4")
	}
	if req.StartDate != nil && *req.StartDate != "" {
		d, err := models.ParseDate(*req.StartDate)
		if err != nil {
			verr.Add("startDate", "must be a date (YYYY-MM-DD)")
		} else {
			t := d.Time
			filter.StartDate = &t
		}
	}
	if req.EndDate != nil && *req.EndDate != "" {
		d, err := models.ParseDate(*req.EndDate)
		if err != nil {
			verr.Add("endDate", "must be a date (YYYY-MM-DD)")
		} else {
			t := d.Time.AddDate(0, 0, 1)
			filter.EndDate = &t
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return filter, nil
}
