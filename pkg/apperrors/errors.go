// Package apperrors описывает классы ошибок, которые сервис возвращает клиенту.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindBadRequest Kind = "bad_request"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Error - ошибка с классом, сообщением для клиента и причиной для логов
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func BadRequest(message string, details interface{}) *Error {
	return &Error{Kind: KindBadRequest, Message: message, Details: details}
}

func Validation(message string, details interface{}, err error) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details, Err: err}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf возвращает класс ошибки; всё неизвестное считается internal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

var statusByKind = map[Kind]int{
	KindBadRequest: http.StatusBadRequest,
	KindValidation: http.StatusBadRequest,
	KindConflict:   http.StatusConflict,
	KindInternal:   http.StatusInternalServerError,
}

// Status отображает класс ошибки в HTTP статус
func Status(kind Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
