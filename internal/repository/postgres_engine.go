package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stock-movement-service/internal/models"
)

const (
	routineCreate  = "functional.sp_stock_movement_create"
	routineList    = "functional.sp_stock_movement_list"
	routineCount   = "functional.sp_stock_movement_count"
	routineGet     = "functional.sp_stock_movement_get"
	routineReverse = "functional.sp_stock_movement_reverse"
)

// postgresEngine delega todas las reglas a las rutinas de la migración 0001
type postgresEngine struct {
	exec *routineExecutor
}

// NewPostgresEngine crea el motor sobre el pool compartido
func NewPostgresEngine(connector Connector) MovementEngine {
	return &postgresEngine{exec: &routineExecutor{connector: connector}}
}

func (e *postgresEngine) Name() string {
	return "postgres"
}

// CreateMovement ejecuta sp_stock_movement_create
func (e *postgresEngine) CreateMovement(ctx context.Context, movement *models.NewMovement) (int64, error) {
	params := []Param{
		{"p_id_account", movement.IDAccount},
		{"p_id_user", movement.IDUser},
		{"p_id_product", movement.IDProduct},
		{"p_movement_type", int64(movement.MovementType)},
		{"p_quantity", movement.Quantity},
		{"p_reason", nullString(movement.Reason)},
		{"p_reference_document", nullString(movement.ReferenceDocument)},
		{"p_lot", nullString(movement.Lot)},
		{"p_expiration_date", nullDate(movement.ExpirationDate)},
	}

	var id int64
	err := e.exec.call(ctx, routineCreate, params, ReturnSingle, func(rows *sql.Rows) error {
		return rows.Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListMovements ejecuta sp_stock_movement_list y sp_stock_movement_count
func (e *postgresEngine) ListMovements(ctx context.Context, filter *models.MovementFilter) ([]*models.StockMovement, int, error) {
	params := filterParams(filter)

	var total int
	err := e.exec.call(ctx, routineCount, params, ReturnSingle, func(rows *sql.Rows) error {
		return rows.Scan(&total)
	})
	if err != nil {
		return nil, 0, err
	}

	movements := []*models.StockMovement{}
	if filter.PastEnd(total) {
		return movements, total, nil
	}

	pageParams := append(params,
		Param{"p_sort_order", string(filter.SortOrder)},
		Param{"p_page_size", int64(filter.PageSize)},
		Param{"p_page_number", int64(filter.PageNumber)},
	)

	err = e.exec.call(ctx, routineList, pageParams, ReturnMulti, func(rows *sql.Rows) error {
		var m models.StockMovement
		var movementType int64
		var reason, referenceDocument, lot sql.NullString
		var expiration nullableDate
		var original sql.NullInt64
		if err := rows.Scan(
			&m.IDStockMovement, &m.IDProduct, &m.ProductName, &m.ProductSku, &movementType,
			&m.Quantity, &reason, &referenceDocument, &lot, &expiration,
			&m.IsReversal, &original, &m.IDUser, &m.DateCreated, &m.RunningBalance,
		); err != nil {
			return err
		}
		m.IDAccount = filter.IDAccount
		m.MovementType = models.MovementType(movementType)
		m.MovementTypeName = m.MovementType.String()
		m.Reason = stringPtr(reason)
		m.ReferenceDocument = stringPtr(referenceDocument)
		m.Lot = stringPtr(lot)
		m.ExpirationDate = expiration.ptr()
		m.IDOriginalMovement = int64Ptr(original)
		movements = append(movements, &m)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// GetMovement ejecuta sp_stock_movement_get; sin filas es ErrNotFound
func (e *postgresEngine) GetMovement(ctx context.Context, idAccount, idStockMovement int64) (*models.StockMovementDetail, error) {
	params := []Param{
		{"p_id_account", idAccount},
		{"p_id_stock_movement", idStockMovement},
	}

	var d models.StockMovementDetail
	err := e.exec.call(ctx, routineGet, params, ReturnSingle, func(rows *sql.Rows) error {
		var movementType int64
		var reason, referenceDocument, lot sql.NullString
		var expiration nullableDate
		var original sql.NullInt64
		if err := rows.Scan(
			&d.IDStockMovement, &d.IDProduct, &d.ProductName, &d.ProductSku, &movementType,
			&d.Quantity, &reason, &referenceDocument, &lot, &expiration,
			&d.IsReversal, &original, &d.IDUser, &d.DateCreated, &d.HasBeenReversed,
		); err != nil {
			return err
		}
		d.IDAccount = idAccount
		d.MovementType = models.MovementType(movementType)
		d.MovementTypeName = d.MovementType.String()
		d.Reason = stringPtr(reason)
		d.ReferenceDocument = stringPtr(referenceDocument)
		d.Lot = stringPtr(lot)
		d.ExpirationDate = expiration.ptr()
		d.IDOriginalMovement = int64Ptr(original)
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ReverseMovement ejecuta sp_stock_movement_reverse
func (e *postgresEngine) ReverseMovement(ctx context.Context, reversal *models.Reversal) (int64, error) {
	params := []Param{
		{"p_id_account", reversal.IDAccount},
		{"p_id_user", reversal.IDUser},
		{"p_id_stock_movement", reversal.IDStockMovement},
		{"p_reason", reversal.Reason},
	}

	var id int64
	err := e.exec.call(ctx, routineReverse, params, ReturnSingle, func(rows *sql.Rows) error {
		return rows.Scan(&id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s returned no rows", routineReverse)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func filterParams(f *models.MovementFilter) []Param {
	var movementType interface{}
	if f.MovementType != nil {
		movementType = int64(*f.MovementType)
	}
	return []Param{
		{"p_id_account", f.IDAccount},
		{"p_id_product", nullInt64(f.IDProduct)},
		{"p_start_date", nullTime(f.StartDate)},
		{"p_end_date", nullTime(f.EndDate)},
		{"p_movement_type", movementType},
		{"p_id_user", nullInt64(f.IDUser)},
	}
}
