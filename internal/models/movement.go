package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// quantity y runningBalance viajan como números JSON
	decimal.MarshalJSONWithoutQuotes = true
}

// MovementType tipo de movimiento de inventario
type MovementType int

const (
	MovementCreation MovementType = iota
	MovementEntry
	MovementExit
	MovementAdjustment
	MovementDeletion
)

var movementTypeNames = map[MovementType]string{
	MovementCreation:   "Creation",
	MovementEntry:      "Entry",
	MovementExit:       "Exit",
	MovementAdjustment: "Adjustment",
	MovementDeletion:   "Deletion",
}

// Valid indica si el tipo está dentro del rango cerrado [0,4]
func (t MovementType) Valid() bool {
	_, ok := movementTypeNames[t]
	return ok
}

func (t MovementType) String() string {
	if name, ok := movementTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MovementType(%d)", int(t))
}

// Límites de quantity: NUMERIC(18,4) en el ledger
const (
	QuantityScale         = 4
	QuantityIntegerDigits = 14
)

const QuantityRangeMessage = "must have at most 4 decimal places and an absolute value below 10^14"

var maxQuantity = decimal.New(1, QuantityIntegerDigits)

// QuantityFits indica si la cantidad se guarda sin redondeo ni desborde
func QuantityFits(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(QuantityScale)) && q.Abs().LessThan(maxQuantity)
}

// Credential identidad resuelta una vez por request en el borde HTTP
type Credential struct {
	IDAccount int64 `json:"idAccount"`
	IDUser    int64 `json:"idUser"`
}

// StockMovement representa una fila del ledger tal como la devuelve el listado
type StockMovement struct {
	IDStockMovement    int64           `json:"idStockMovement" db:"id_stock_movement"`
	IDAccount          int64           `json:"-" db:"id_account"`
	IDProduct          int64           `json:"idProduct" db:"id_product"`
	ProductName        string          `json:"productName" db:"product_name"`
	ProductSku         string          `json:"productSku" db:"product_sku"`
	MovementType       MovementType    `json:"movementType" db:"movement_type"`
	MovementTypeName   string          `json:"movementTypeName" db:"movement_type_name"`
	Quantity           decimal.Decimal `json:"quantity" db:"quantity"`
	Reason             *string         `json:"reason" db:"reason"`
	ReferenceDocument  *string         `json:"referenceDocument" db:"reference_document"`
	Lot                *string         `json:"lot" db:"lot"`
	ExpirationDate     *Date           `json:"expirationDate" db:"expiration_date"`
	IsReversal         bool            `json:"isReversal" db:"is_reversal"`
	IDOriginalMovement *int64          `json:"idOriginalMovement" db:"id_original_movement"`
	IDUser             int64           `json:"idUser" db:"id_user"`
	DateCreated        time.Time       `json:"dateCreated" db:"date_created"`
	RunningBalance     decimal.Decimal `json:"runningBalance" db:"running_balance"`
}

// StockMovementDetail vista de detalle, incluye si el movimiento ya fue revertido
type StockMovementDetail struct {
	IDStockMovement    int64           `json:"idStockMovement"`
	IDAccount          int64           `json:"-"`
	IDProduct          int64           `json:"idProduct"`
	ProductName        string          `json:"productName"`
	ProductSku         string          `json:"productSku"`
	MovementType       MovementType    `json:"movementType"`
	MovementTypeName   string          `json:"movementTypeName"`
	Quantity           decimal.Decimal `json:"quantity"`
	Reason             *string         `json:"reason"`
	ReferenceDocument  *string         `json:"referenceDocument"`
	Lot                *string         `json:"lot"`
	ExpirationDate     *Date           `json:"expirationDate"`
	IsReversal         bool            `json:"isReversal"`
	IDOriginalMovement *int64          `json:"idOriginalMovement"`
	IDUser             int64           `json:"idUser"`
	DateCreated        time.Time       `json:"dateCreated"`
	HasBeenReversed    bool            `json:"hasBeenReversed"`
}

// Settled indica que el detalle ya no puede cambiar (es reverso o ya fue revertido)
func (d *StockMovementDetail) Settled() bool {
	return d.IsReversal || d.HasBeenReversed
}

// Product referencia externa mínima usada por el motor para validar y enriquecer
type Product struct {
	IDProduct int64  `json:"idProduct" db:"id_product"`
	IDAccount int64  `json:"idAccount" db:"id_account"`
	Name      string `json:"name" db:"name"`
	Sku       string `json:"sku" db:"sku"`
}

// Date fecha sin hora (YYYY-MM-DD) para expirationDate
type Date struct {
	time.Time
}

const DateLayout = "2006-01-02"

// ParseDate acepta YYYY-MM-DD o RFC3339
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", value)
	}
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implementa sql.Scanner
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

// Value implementa driver.Valuer
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}
