package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"stock-movement-service/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryEngine motor de referencia en memoria. Cumple el mismo contrato que el
// motor PostgreSQL y se usa en tests y en ENGINE=memory para desarrollo local.
type MemoryEngine struct {
	mu sync.RWMutex

	nextID      int64
	movements   []*models.StockMovement // orden de creación, RunningBalance sin calcular
	byID        map[int64]*models.StockMovement
	reversedBy  map[int64]int64
	products    map[int64]models.Product
	openCatalog bool

	now func() time.Time
}

// MemoryOption configura el motor en memoria
type MemoryOption func(*MemoryEngine)

// WithProduct registra un producto en el catálogo
func WithProduct(product models.Product) MemoryOption {
	return func(e *MemoryEngine) {
		e.products[product.IDProduct] = product
	}
}

// WithOpenCatalog acepta productos desconocidos y los registra en la cuenta
// del primer movimiento que los nombra
func WithOpenCatalog() MemoryOption {
	return func(e *MemoryEngine) {
		e.openCatalog = true
	}
}

// WithClock reemplaza el reloj del motor
func WithClock(now func() time.Time) MemoryOption {
	return func(e *MemoryEngine) {
		e.now = now
	}
}

// NewMemoryEngine crea un motor vacío
func NewMemoryEngine(opts ...MemoryOption) *MemoryEngine {
	e := &MemoryEngine{
		byID:       make(map[int64]*models.StockMovement),
		reversedBy: make(map[int64]int64),
		products:   make(map[int64]models.Product),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *MemoryEngine) Name() string {
	return "memory"
}

// CreateMovement agrega un movimiento al ledger
func (e *MemoryEngine) CreateMovement(ctx context.Context, movement *models.NewMovement) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkNewMovement(movement); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	product, err := e.productFor(movement.IDAccount, movement.IDProduct)
	if err != nil {
		return 0, err
	}

	delta := Delta(movement.MovementType, movement.Quantity)
	if e.balanceOf(movement.IDAccount, movement.IDProduct).Add(delta).IsNegative() {
		return 0, models.NewBusinessRuleError(MsgInsufficientStock)
	}

	row := &models.StockMovement{
		IDAccount:         movement.IDAccount,
		IDProduct:         movement.IDProduct,
		ProductName:       product.Name,
		ProductSku:        product.Sku,
		MovementType:      movement.MovementType,
		MovementTypeName:  movement.MovementType.String(),
		Quantity:          movement.Quantity,
		Reason:            copyString(movement.Reason),
		ReferenceDocument: copyString(movement.ReferenceDocument),
		Lot:               copyString(movement.Lot),
		ExpirationDate:    copyDate(movement.ExpirationDate),
		IDUser:            movement.IDUser,
	}
	return e.appendRow(row), nil
}

// ListMovements calcula el saldo acumulado sobre todo el ledger de la cuenta
// y luego filtra, ordena y pagina
func (e *MemoryEngine) ListMovements(ctx context.Context, filter *models.MovementFilter) ([]*models.StockMovement, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	balances := make(map[int64]decimal.Decimal)
	var matched []*models.StockMovement
	for _, m := range e.movements {
		if m.IDAccount != filter.IDAccount {
			continue
		}
		balance := balances[m.IDProduct].Add(Delta(m.MovementType, m.Quantity))
		balances[m.IDProduct] = balance

		if !matches(m, filter) {
			continue
		}
		row := *m
		row.RunningBalance = balance
		matched = append(matched, &row)
	}

	sortMovements(matched, filter.SortOrder)

	total := len(matched)
	if filter.PastEnd(total) {
		return []*models.StockMovement{}, total, nil
	}
	start := filter.Offset()
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// GetMovement devuelve el detalle dentro de la cuenta
func (e *MemoryEngine) GetMovement(ctx context.Context, idAccount, idStockMovement int64) (*models.StockMovementDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	m, ok := e.byID[idStockMovement]
	if !ok || m.IDAccount != idAccount {
		return nil, models.ErrNotFound
	}
	_, reversed := e.reversedBy[m.IDStockMovement]

	return &models.StockMovementDetail{
		IDStockMovement:    m.IDStockMovement,
		IDAccount:          m.IDAccount,
		IDProduct:          m.IDProduct,
		ProductName:        m.ProductName,
		ProductSku:         m.ProductSku,
		MovementType:       m.MovementType,
		MovementTypeName:   m.MovementTypeName,
		Quantity:           m.Quantity,
		Reason:             copyString(m.Reason),
		ReferenceDocument:  copyString(m.ReferenceDocument),
		Lot:                copyString(m.Lot),
		ExpirationDate:     copyDate(m.ExpirationDate),
		IsReversal:         m.IsReversal,
		IDOriginalMovement: copyID(m.IDOriginalMovement),
		IDUser:             m.IDUser,
		DateCreated:        m.DateCreated,
		HasBeenReversed:    reversed,
	}, nil
}

// ReverseMovement agrega el movimiento compensatorio. No se revierten
// reversiones ni se revierte dos veces el mismo movimiento.
func (e *MemoryEngine) ReverseMovement(ctx context.Context, reversal *models.Reversal) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(reversal.Reason) == "" {
		return 0, models.NewBusinessRuleError(MsgReversalReason)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	original, ok := e.byID[reversal.IDStockMovement]
	if !ok || original.IDAccount != reversal.IDAccount {
		return 0, models.NewBusinessRuleError(MsgMovementNotFound)
	}
	if original.IsReversal {
		return 0, models.NewBusinessRuleError(MsgReversalOfReversal)
	}
	if _, done := e.reversedBy[original.IDStockMovement]; done {
		return 0, models.NewBusinessRuleError(MsgAlreadyReversed)
	}

	quantity := original.Quantity.Neg()
	delta := Delta(original.MovementType, quantity)
	if e.balanceOf(original.IDAccount, original.IDProduct).Add(delta).IsNegative() {
		return 0, models.NewBusinessRuleError(MsgInsufficientStock)
	}

	reason := reversal.Reason
	originalID := original.IDStockMovement
	row := &models.StockMovement{
		IDAccount:          original.IDAccount,
		IDProduct:          original.IDProduct,
		ProductName:        original.ProductName,
		ProductSku:         original.ProductSku,
		MovementType:       original.MovementType,
		MovementTypeName:   original.MovementTypeName,
		Quantity:           quantity,
		Reason:             &reason,
		ReferenceDocument:  copyString(original.ReferenceDocument),
		Lot:                copyString(original.Lot),
		ExpirationDate:     copyDate(original.ExpirationDate),
		IsReversal:         true,
		IDOriginalMovement: &originalID,
		IDUser:             reversal.IDUser,
	}
	id := e.appendRow(row)
	e.reversedBy[originalID] = id
	return id, nil
}

// appendRow asigna id y fecha; se llama con el lock de escritura tomado
func (e *MemoryEngine) appendRow(row *models.StockMovement) int64 {
	e.nextID++
	row.IDStockMovement = e.nextID
	row.DateCreated = e.now().UTC()
	e.movements = append(e.movements, row)
	e.byID[row.IDStockMovement] = row
	return row.IDStockMovement
}

func (e *MemoryEngine) productFor(idAccount, idProduct int64) (models.Product, error) {
	product, ok := e.products[idProduct]
	if ok {
		if product.IDAccount != idAccount {
			return models.Product{}, models.NewBusinessRuleError(MsgProductNotFound)
		}
		return product, nil
	}
	if !e.openCatalog {
		return models.Product{}, models.NewBusinessRuleError(MsgProductNotFound)
	}
	product = models.Product{
		IDProduct: idProduct,
		IDAccount: idAccount,
		Name:      fmt.Sprintf("Product %d", idProduct),
		Sku:       fmt.Sprintf("SKU-%d", idProduct),
	}
	e.products[idProduct] = product
	return product, nil
}

func (e *MemoryEngine) balanceOf(idAccount, idProduct int64) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range e.movements {
		if m.IDAccount == idAccount && m.IDProduct == idProduct {
			balance = balance.Add(Delta(m.MovementType, m.Quantity))
		}
	}
	return balance
}

func matches(m *models.StockMovement, f *models.MovementFilter) bool {
	if f.IDProduct != nil && m.IDProduct != *f.IDProduct {
		return false
	}
	if f.MovementType != nil && m.MovementType != *f.MovementType {
		return false
	}
	if f.IDUser != nil && m.IDUser != *f.IDUser {
		return false
	}
	if f.StartDate != nil && m.DateCreated.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && !m.DateCreated.Before(*f.EndDate) {
		return false
	}
	return true
}

func sortMovements(rows []*models.StockMovement, order models.SortOrder) {
	switch order {
	case models.SortDateAsc:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].IDStockMovement < rows[j].IDStockMovement
		})
	case models.SortProductAsc:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].ProductName != rows[j].ProductName {
				return rows[i].ProductName < rows[j].ProductName
			}
			if rows[i].IDProduct != rows[j].IDProduct {
				return rows[i].IDProduct < rows[j].IDProduct
			}
			return rows[i].IDStockMovement < rows[j].IDStockMovement
		})
	case models.SortProductDesc:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].ProductName != rows[j].ProductName {
				return rows[i].ProductName > rows[j].ProductName
			}
			if rows[i].IDProduct != rows[j].IDProduct {
				return rows[i].IDProduct > rows[j].IDProduct
			}
			return rows[i].IDStockMovement > rows[j].IDStockMovement
		})
	default:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].IDStockMovement > rows[j].IDStockMovement
		})
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyDate(d *models.Date) *models.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
