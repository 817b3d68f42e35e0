package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"stock-movement-service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// Validator convierte un bag de parámetros en un DTO tipado y aplica sus restricciones
type Validator struct {
	validate *validator.Validate
}

// New crea el validador con las reglas propias del dominio registradas
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := models.ParseDate(fl.Field().String())
		return err == nil
	})

	v.RegisterStructValidation(createMovementRules, models.CreateMovementRequest{})

	return &Validator{validate: v}
}

// createMovementRules quantity debe caber en el ledger y reason es obligatorio
// cuando el tipo es Adjustment
func createMovementRules(sl validator.StructLevel) {
	req := sl.Current().Interface().(models.CreateMovementRequest)
	if req.Quantity != nil && !models.QuantityFits(*req.Quantity) {
		sl.ReportError(req.Quantity, "quantity", "Quantity", "quantity_range", "")
	}
	if req.MovementType == nil || *req.MovementType != models.MovementAdjustment {
		return
	}
	if req.Reason == nil || strings.TrimSpace(*req.Reason) == "" {
		sl.ReportError(req.Reason, "reason", "Reason", "required_for_adjustment", "")
	}
}

// Decode coerciona el bag sobre dst (puntero a struct) y valida.
// Devuelve *models.ValidationError con todos los campos inválidos.
func (v *Validator) Decode(bag Bag, dst interface{}) error {
	verr := &models.ValidationError{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(decimalHook, stringHook),
		WeaklyTypedInput: true,
		Result:           dst,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}

	if err := decoder.Decode(map[string]interface{}(bag)); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			for _, msg := range merr.Errors {
				verr.Add(fieldFromDecodeError(msg), "has an invalid value")
			}
		} else {
			verr.Add("body", "could not be decoded")
		}
	}

	if err := v.validate.Struct(dst); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return fmt.Errorf("failed to validate: %w", err)
		}
		for _, fe := range ves {
			if verr.Has(fe.Field()) {
				continue
			}
			verr.Add(fe.Field(), messageFor(fe))
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// fieldFromDecodeError extrae el nombre de campo de los mensajes de mapstructure,
// que siempre lo citan entre comillas simples.
func fieldFromDecodeError(msg string) string {
	start := strings.Index(msg, "'")
	if start < 0 {
		return "body"
	}
	end := strings.Index(msg[start+1:], "'")
	if end < 0 {
		return "body"
	}
	return msg[start+1 : start+1+end]
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_for_adjustment":
		return "is required for adjustment movements"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be greater than or equal to " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "isodate":
		return "must be a date (YYYY-MM-DD)"
	case "quantity_range":
		return models.QuantityRangeMessage
	}
	return "is invalid"
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook convierte strings y números JSON a decimal.Decimal
func decimalHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch value := data.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(value))
	case json.Number:
		return decimal.NewFromString(value.String())
	case float64:
		return decimal.NewFromFloat(value), nil
	case int:
		return decimal.NewFromInt(int64(value)), nil
	case int64:
		return decimal.NewFromInt(value), nil
	}
	return data, nil
}

// stringHook los campos de texto no aceptan números ni booleanos; el modo débil
// los convertiría en silencio
func stringHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch data.(type) {
	case json.Number, float32, float64, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return nil, errors.New("expected a string")
	}
	return data, nil
}
