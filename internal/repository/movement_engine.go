package repository

import (
	"context"
	"strings"

	"stock-movement-service/internal/models"

	"github.com/shopspring/decimal"
)

// MovementEngine es el motor transaccional dueño del ledger de movimientos.
// Calcula saldos, valida reglas de negocio y decide si una reversión procede.
//
// Contrato:
//   - CreateMovement agrega exactamente una fila o falla sin efectos.
//   - ListMovements aplica todos los filtros en conjunto (AND) dentro de la cuenta
//     y devuelve la página pedida junto al total de filas que cumplen los filtros.
//   - GetMovement devuelve models.ErrNotFound tanto para ids inexistentes como
//     para ids de otra cuenta.
//   - ReverseMovement agrega una fila con IsReversal=true que compensa la original.
//
// Los rechazos de reglas de negocio se devuelven como *models.BusinessRuleError.
type MovementEngine interface {
	CreateMovement(ctx context.Context, movement *models.NewMovement) (int64, error)
	ListMovements(ctx context.Context, filter *models.MovementFilter) ([]*models.StockMovement, int, error)
	GetMovement(ctx context.Context, idAccount, idStockMovement int64) (*models.StockMovementDetail, error)
	ReverseMovement(ctx context.Context, reversal *models.Reversal) (int64, error)
	Name() string
}

// Mensajes de reglas de negocio, idénticos en todos los motores
const (
	MsgProductNotFound     = "Product not found"
	MsgQuantityZero        = "Quantity must be different from zero"
	MsgQuantityNotPositive = "Quantity must be greater than zero"
	MsgAdjustmentReason    = "Reason is required for adjustment movements"
	MsgInsufficientStock   = "Insufficient stock for this movement"
	MsgMovementNotFound    = "Stock movement not found"
	MsgReversalOfReversal  = "A reversal movement cannot be reversed"
	MsgAlreadyReversed     = "Stock movement has already been reversed"
	MsgReversalReason      = "Reason is required to reverse a movement"
	MsgInvalidMovementType = "Invalid movement type"
	MsgQuantityOutOfRange  = "Quantity must have at most 4 decimal places and be less than 10^14 in absolute value"
)

// Delta efecto de un movimiento sobre el saldo del producto.
// Entradas suman, salidas restan; Adjustment lleva su propio signo.
func Delta(movementType models.MovementType, quantity decimal.Decimal) decimal.Decimal {
	switch movementType {
	case models.MovementExit, models.MovementDeletion:
		return quantity.Neg()
	default:
		return quantity
	}
}

// checkNewMovement reglas que no dependen del estado del ledger
func checkNewMovement(m *models.NewMovement) error {
	if !m.MovementType.Valid() {
		return models.NewBusinessRuleError(MsgInvalidMovementType)
	}
	if m.Quantity.IsZero() {
		return models.NewBusinessRuleError(MsgQuantityZero)
	}
	if !models.QuantityFits(m.Quantity) {
		return models.NewBusinessRuleError(MsgQuantityOutOfRange)
	}
	if m.MovementType != models.MovementAdjustment && !m.Quantity.IsPositive() {
		return models.NewBusinessRuleError(MsgQuantityNotPositive)
	}
	if m.MovementType == models.MovementAdjustment && blank(m.Reason) {
		return models.NewBusinessRuleError(MsgAdjustmentReason)
	}
	return nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
