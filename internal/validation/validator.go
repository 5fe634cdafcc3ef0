// Package validation проверяет входящие запросы через validator/v10.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/models"
)

// Validator оборачивает validator/v10 и возвращает доменные ошибки
type Validator struct {
	v *validator.Validate
}

// New создаёт валидатор с правилами для вещей
func New() *Validator {
	v := validator.New()

	// В сообщениях используем имена из json-тегов
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("size", func(fl validator.FieldLevel) bool {
		return models.Size(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return models.Condition(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

// Validate проверяет структуру и возвращает ошибку VALIDATION с деталями по полям
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("Неверные данные запроса", fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "обязательное поле"
	case "email":
		return "некорректный email"
	case "min":
		if e.Kind() == reflect.Slice || e.Kind() == reflect.String {
			return fmt.Sprintf("минимальная длина %s", e.Param())
		}
		return "не меньше " + e.Param()
	case "max":
		if e.Kind() == reflect.Slice || e.Kind() == reflect.String {
			return fmt.Sprintf("максимальная длина %s", e.Param())
		}
		return "не больше " + e.Param()
	case "url":
		return "некорректный URL"
	case "uuid":
		return "некорректный UUID"
	case "oneof":
		return "допустимые значения: " + e.Param()
	case "gte":
		return "не меньше " + e.Param()
	case "lte":
		return "не больше " + e.Param()
	case "gt":
		return "должно быть больше " + e.Param()
	case "category":
		return "неизвестная категория"
	case "size":
		return "неизвестный размер"
	case "condition":
		return "неизвестное состояние"
	default:
		return "некорректное значение"
	}
}
