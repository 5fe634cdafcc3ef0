package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/store"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    domainerrors.Code `json:"code"`
	Details any               `json:"details,omitempty"`
}

// ErrorHandler превращает ошибки обработчиков в JSON-ответ
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		de := toDomain(err)
		status := de.HTTPStatus()

		// Ошибки Fiber сохраняют свой статус
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("Ошибка обработки запроса")
		}

		return c.Status(status).JSON(ErrorResponse{
			Error:   de.Message,
			Code:    de.Code,
			Details: de.Details,
		})
	}
}

func toDomain(err error) *domainerrors.Error {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return de
	}

	// Ошибки Fiber: 404 маршрута, 405, ошибки разбора тела
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return &domainerrors.Error{Code: codeForStatus(fe.Code), Message: fe.Message}
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound("Не найдено")
	case errors.Is(err, store.ErrDuplicate):
		return domainerrors.AlreadyExists("Запись уже существует")
	case errors.Is(err, store.ErrVersionConflict):
		return domainerrors.VersionConflict("Запись изменена другим пользователем")
	case errors.Is(err, store.ErrStaleState):
		return domainerrors.Conflict("Состояние записи изменилось")
	case errors.Is(err, store.ErrInsufficientPoints):
		return domainerrors.InsufficientPoints("Недостаточно баллов")
	}
	return domainerrors.Internal("Внутренняя ошибка сервера", err)
}

func codeForStatus(status int) domainerrors.Code {
	switch status {
	case fiber.StatusNotFound:
		return domainerrors.CodeNotFound
	case fiber.StatusUnauthorized:
		return domainerrors.CodeUnauthorized
	case fiber.StatusForbidden:
		return domainerrors.CodeForbidden
	case fiber.StatusConflict:
		return domainerrors.CodeConflict
	case fiber.StatusTooManyRequests:
		return domainerrors.CodeTooManyRequests
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
		return domainerrors.CodeValidation
	default:
		if status < fiber.StatusInternalServerError {
			return domainerrors.CodeValidation
		}
		return domainerrors.CodeInternal
	}
}
