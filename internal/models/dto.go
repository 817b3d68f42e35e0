package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ===== REQUEST DTOs =====
// Los tags mapstructure nombran las claves del bag de parámetros (path + query + body),
// los tags validate declaran las restricciones de cada operación.

// CreateMovementRequest DTO para registrar un movimiento
type CreateMovementRequest struct {
	IDProduct         int64            `mapstructure:"idProduct" validate:"required,gt=0"`
	MovementType      *MovementType    `mapstructure:"movementType" validate:"required,min=0,max=4"`
	Quantity          *decimal.Decimal `mapstructure:"quantity" validate:"required"`
	Reason            *string          `mapstructure:"reason" validate:"omitempty,max=255"`
	ReferenceDocument *string          `mapstructure:"referenceDocument" validate:"omitempty,max=50"`
	Lot               *string          `mapstructure:"lot" validate:"omitempty,max=50"`
	ExpirationDate    *string          `mapstructure:"expirationDate" validate:"omitempty,isodate"`
}

// ListMovementsRequest filtros y paginación del listado
type ListMovementsRequest struct {
	IDProduct    *int64        `mapstructure:"idProduct" validate:"omitempty,gt=0"`
	StartDate    *string       `mapstructure:"startDate" validate:"omitempty,isodate"`
	EndDate      *string       `mapstructure:"endDate" validate:"omitempty,isodate"`
	MovementType *MovementType `mapstructure:"movementType" validate:"omitempty,min=0,max=4"`
	IDUser       *int64        `mapstructure:"idUser" validate:"omitempty,gt=0"`
	SortOrder    *string       `mapstructure:"sortOrder" validate:"omitempty,oneof=date_asc date_desc product_asc product_desc"`
	PageSize     *int          `mapstructure:"pageSize" validate:"omitempty,min=1,max=1000"`
	PageNumber   *int          `mapstructure:"pageNumber" validate:"omitempty,min=1"`
}

// GetMovementRequest parámetros del detalle
type GetMovementRequest struct {
	ID int64 `mapstructure:"id" validate:"required,gt=0"`
}

// ReverseMovementRequest parámetros de la reversión
type ReverseMovementRequest struct {
	ID     int64  `mapstructure:"id" validate:"required,gt=0"`
	Reason string `mapstructure:"reason" validate:"required,min=1,max=255"`
}

// ===== ENGINE PARAMS =====

// SortOrder orden del listado
type SortOrder string

const (
	SortDateAsc     SortOrder = "date_asc"
	SortDateDesc    SortOrder = "date_desc"
	SortProductAsc  SortOrder = "product_asc"
	SortProductDesc SortOrder = "product_desc"
)

const (
	DefaultPageSize   = 100
	MaxPageSize       = 1000
	DefaultPageNumber = 1
)

// NewMovement parámetros normalizados para el motor
type NewMovement struct {
	IDAccount         int64
	IDUser            int64
	IDProduct         int64
	MovementType      MovementType
	Quantity          decimal.Decimal
	Reason            *string
	ReferenceDocument *string
	Lot               *string
	ExpirationDate    *Date
}

// MovementFilter filtros conjuntivos (AND) del listado
type MovementFilter struct {
	IDAccount    int64
	IDProduct    *int64
	StartDate    *time.Time
	EndDate      *time.Time
	MovementType *MovementType
	IDUser       *int64
	SortOrder    SortOrder
	PageSize     int
	PageNumber   int
}

// PastEnd indica si la página pedida queda después de la última con filas.
// Compara páginas, no filas, para no desbordar con pageNumber grandes.
func (f *MovementFilter) PastEnd(total int) bool {
	if total <= 0 || f.PageSize <= 0 {
		return true
	}
	totalPages := (total-1)/f.PageSize + 1
	return f.PageNumber > totalPages
}

// Offset filas a saltar para la página pedida; solo es válido si !PastEnd(total)
func (f *MovementFilter) Offset() int {
	return (f.PageNumber - 1) * f.PageSize
}

// Reversal parámetros de reversión para el motor
type Reversal struct {
	IDAccount       int64
	IDUser          int64
	IDStockMovement int64
	Reason          string
}

// ===== RESPONSE DTOs =====

// CreateMovementResponse identificador del movimiento creado
type CreateMovementResponse struct {
	IDStockMovement int64 `json:"idStockMovement"`
}

// ReverseMovementResponse identificador del movimiento compensatorio
type ReverseMovementResponse struct {
	IDReversalMovement int64 `json:"idReversalMovement"`
}

// Pagination metadatos de paginación
type Pagination struct {
	TotalRecords int `json:"totalRecords"`
	PageSize     int `json:"pageSize"`
	PageNumber   int `json:"pageNumber"`
	TotalPages   int `json:"totalPages"`
}

// NewPagination calcula totalPages = ceil(totalRecords / pageSize)
func NewPagination(totalRecords, pageSize, pageNumber int) Pagination {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageNumber <= 0 {
		pageNumber = DefaultPageNumber
	}
	totalPages := int(math.Ceil(float64(totalRecords) / float64(pageSize)))
	return Pagination{
		TotalRecords: totalRecords,
		PageSize:     pageSize,
		PageNumber:   pageNumber,
		TotalPages:   totalPages,
	}
}

// ListMovementsResponse página de movimientos
type ListMovementsResponse struct {
	Movements  []*StockMovement `json:"movements"`
	Pagination Pagination       `json:"pagination"`
}

// ===== ENVELOPES =====

// Metadata metadatos del sobre de éxito
type Metadata struct {
	Timestamp string `json:"timestamp"`
}

// SuccessResponse sobre uniforme de éxito
type SuccessResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
}

// ErrorBody cuerpo de error
type ErrorBody struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse sobre de error
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}

// GeneralErrorResponse cuerpo genérico de los 500, sin detalle interno
type GeneralErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// NewSuccessResponse arma el sobre de éxito
func NewSuccessResponse(data interface{}) SuccessResponse {
	return SuccessResponse{
		Success:  true,
		Data:     data,
		Metadata: Metadata{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	}
}

// NewErrorResponse arma el sobre de error
func NewErrorResponse(message string, details interface{}) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		Error:     ErrorBody{Message: message, Details: details},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// StatusGeneralError respuesta para fallos no reconocidos
var StatusGeneralError = GeneralErrorResponse{
	StatusCode: 500,
	Code:       "GENERAL_ERROR",
	Message:    "An unexpected error occurred",
}
