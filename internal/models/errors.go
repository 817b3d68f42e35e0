package models

import (
	"errors"
	"strings"
)

// ErrNotFound movimiento inexistente o fuera del alcance de la cuenta.
// Ambos casos devuelven exactamente el mismo error.
var ErrNotFound = errors.New("stock movement not found")

// BusinessRuleError rechazo reconocido por el motor transaccional.
// El mensaje se entrega al cliente tal cual.
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

// NewBusinessRuleError crea un error de regla de negocio
func NewBusinessRuleError(message string) *BusinessRuleError {
	return &BusinessRuleError{Message: message}
}

// FieldError detalle de un campo inválido
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError entrada mal formada, detectada antes de llamar al motor
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add agrega un campo inválido
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Has indica si el campo ya fue reportado
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// IsBusinessRule helper para errors.As
func IsBusinessRule(err error) (*BusinessRuleError, bool) {
	var bre *BusinessRuleError
	if errors.As(err, &bre) {
		return bre, true
	}
	return nil, false
}

// IsValidation helper para errors.As
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
