package shared

import (
	"errors"
	"net/http"
)

// AppError carries an HTTP status alongside the underlying error so the
// fiber error handler can render a policy-derived response instead of a
// generic 500.
type AppError struct {
	StatusCode int         `json:"code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Err        error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func NewAppError(statusCode int, err error, message string) error {
	return &AppError{StatusCode: statusCode, Message: message, Err: err}
}

func NewBadRequestError(err error, message string) error {
	return NewAppError(http.StatusBadRequest, err, message)
}

func NewUnauthorizedError(err error, message string) error {
	return NewAppError(http.StatusUnauthorized, err, message)
}

func NewForbiddenError(err error, message string) error {
	return NewAppError(http.StatusForbidden, err, message)
}

func NewNotFoundError(err error, message string) error {
	return NewAppError(http.StatusNotFound, err, message)
}

func NewConflictError(err error, message string) error {
	return NewAppError(http.StatusConflict, err, message)
}

func NewTooManyRequestsError(err error, message string) error {
	return NewAppError(http.StatusTooManyRequests, err, message)
}

func NewInternalError(err error, message string) error {
	return NewAppError(http.StatusInternalServerError, err, message)
}

// NewValidationFailedError carries the per-field validation messages in Data
// so the client sees which inputs to fix.
func NewValidationFailedError(err error, details interface{}) error {
	return &AppError{StatusCode: http.StatusBadRequest, Message: "Validation failed", Data: details, Err: err}
}

// NewFrozenError is the rejection a frozen user receives when attempting a
// gated action. Data carries the reason category and the unfreeze date when
// one is known.
func NewFrozenError(message string, data interface{}) error {
	return &AppError{StatusCode: http.StatusForbidden, Message: message, Data: data}
}
