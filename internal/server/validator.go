package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"example.com/finance-tracker/internal/handlers"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор запросов: имена полей берутся из json-тегов,
// доменные теги регистрируются обработчиками.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := handlers.RegisterValidations(v); err != nil {
		panic("register validations: " + err.Error())
	}

	return &CustomValidator{validator: v}
}

// Validate запускает проверку структуры по тегам.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
