// Package errors содержит доменные ошибки с машиночитаемыми кодами.
//
// Сервисы возвращают *Error, обработчик ошибок Fiber превращает код в HTTP-статус:
//
//	if errors.Is(err, errors.ErrNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Реэкспорт функций стандартной библиотеки
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code машиночитаемый код ошибки
type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION"
	CodeConflict           Code = "CONFLICT"
	CodeInternal           Code = "INTERNAL"
	CodeInsufficientPoints Code = "INSUFFICIENT_POINTS"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeVersionConflict    Code = "VERSION_CONFLICT"
	CodeTooManyRequests    Code = "TOO_MANY_REQUESTS"
)

// HTTPStatus возвращает HTTP-статус для кода
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeInvalidTransition, CodeVersionConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation, CodeInsufficientPoints:
		return http.StatusBadRequest
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error доменная ошибка с кодом, сообщением и необязательными деталями
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is сравнивает ошибки по коду
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus возвращает HTTP-статус ошибки
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause возвращает копию ошибки с причиной
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Сентинелы для errors.Is
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
	ErrInsufficientPoints = &Error{Code: CodeInsufficientPoints, Message: "insufficient points"}
	ErrInvalidTransition  = &Error{Code: CodeInvalidTransition, Message: "invalid status transition"}
	ErrVersionConflict    = &Error{Code: CodeVersionConflict, Message: "version conflict"}
)

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails ошибка валидации с деталями по полям
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

func InsufficientPoints(msg string) *Error {
	return &Error{Code: CodeInsufficientPoints, Message: msg}
}

func InvalidTransition(msg string) *Error {
	return &Error{Code: CodeInvalidTransition, Message: msg}
}

func VersionConflict(msg string) *Error {
	return &Error{Code: CodeVersionConflict, Message: msg}
}

func TooManyRequests(msg string) *Error {
	return &Error{Code: CodeTooManyRequests, Message: msg}
}

// Internal оборачивает внутреннюю ошибку; причина не попадает в ответ клиенту
func Internal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: cause}
}

// StatusOf возвращает HTTP-статус для любой ошибки
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
