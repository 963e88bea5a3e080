package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"plotrisk/internal/types"
)

// Validator wraps go-playground/validator with the domain tags used by
// request structs.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator. Field names in errors follow the json tag.
//
// Custom tags:
//   - risk_mode: PAST, FORECAST or PROACTIVE
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("risk_mode", func(fl validator.FieldLevel) bool {
		_, err := types.ParseMode(fl.Field().String())
		return err == nil
	}); err != nil {
		logger.Error("Failed to register risk_mode validation", "error", err)
	}
	return &Validator{validate: v, logger: logger}
}

// ValidateStruct validates s. Failures are returned as a single AppError
// whose details map each offending field to the failed rule. A missing
// required field uses validation_missing_required_field; anything else
// validation_invalid_request.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	code := types.ErrCodeValidationInvalidRequest
	details := make(map[string]any, len(verrs))
	var fields []string
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
		fields = append(fields, fe.Field())
		if fe.Tag() == "required" && len(verrs) == 1 {
			code = types.ErrCodeValidationMissingField
		}
	}
	return types.NewAppErrorWithDetails(code, "invalid request: "+strings.Join(fields, ", "), err, details)
}
