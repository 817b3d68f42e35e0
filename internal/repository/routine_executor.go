package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"stock-movement-service/internal/models"

	"github.com/lib/pq"
)

// BusinessRuleSQLState código con el que las rutinas señalan una regla de negocio violada
const BusinessRuleSQLState = "51000"

// ExpectedReturn forma esperada del resultado de una rutina
type ExpectedReturn int

const (
	ReturnSingle ExpectedReturn = iota
	ReturnMulti
	ReturnNone
)

// Param parámetro nombrado de una rutina
type Param struct {
	Name  string
	Value interface{}
}

// Connector entrega el pool compartido (database.PostgresDB lo implementa)
type Connector interface {
	DB(ctx context.Context) (*sql.DB, error)
}

// routineExecutor invoca rutinas del motor por nombre con parámetros nombrados
type routineExecutor struct {
	connector Connector
}

// buildCall arma SELECT * FROM routine(p_a => $1, p_b => $2, ...)
func buildCall(routine string, params []Param) (string, []interface{}) {
	placeholders := make([]string, len(params))
	args := make([]interface{}, len(params))
	for i, p := range params {
		placeholders[i] = fmt.Sprintf("%s => $%d", p.Name, i+1)
		args[i] = p.Value
	}
	return fmt.Sprintf("SELECT * FROM %s(%s)", routine, strings.Join(placeholders, ", ")), args
}

// call ejecuta la rutina. Con ReturnSingle scan recibe solo la primera fila y
// sql.ErrNoRows si no hubo ninguna; con ReturnMulti recibe cada fila; con
// ReturnNone el resultado se descarta.
func (e *routineExecutor) call(ctx context.Context, routine string, params []Param, expect ExpectedReturn, scan func(*sql.Rows) error) error {
	db, err := e.connector.DB(ctx)
	if err != nil {
		return err
	}

	query, args := buildCall(routine, params)

	if expect == ReturnNone {
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return translate(routine, err)
		}
		return nil
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return translate(routine, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		found = true
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s: %w", routine, err)
		}
		if expect == ReturnSingle {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return translate(routine, err)
	}
	if expect == ReturnSingle && !found {
		return sql.ErrNoRows
	}
	return nil
}

// translate convierte el código reconocido en BusinessRuleError; el resto se envuelve
func translate(routine string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == BusinessRuleSQLState {
		return models.NewBusinessRuleError(pqErr.Message)
	}
	return fmt.Errorf("failed to execute %s: %w", routine, err)
}
