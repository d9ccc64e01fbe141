package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"example.com/finance-tracker/internal/models"
	"example.com/finance-tracker/internal/period"
)

// RegisterValidations добавляет доменные теги: category и month (YYYY-MM).
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseCategory(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}

	return v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
		_, err := period.ParseMonth(fl.Field().String())
		return err == nil
	})
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		field := validationErrs[0]
		return "validation failed: " + field.Field() + " " + field.Tag()
	}
	return "validation failed"
}
