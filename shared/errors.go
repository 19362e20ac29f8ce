package shared

import (
	"errors"
	"net/http"
)

// AppError carries an HTTP status and a stable machine code alongside the
// wrapped cause. All engine failures surface as one of these; none of them
// is allowed to crash the engine.
type AppError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Err        error       `json:"-"`
}

const (
	CodeInvalidCode         = "INVALID_CODE"
	CodeExpired             = "EXPIRED"
	CodeNoPuzzlesConfigured = "NO_PUZZLES_CONFIGURED"
	CodePersistenceFailure  = "PERSISTENCE_FAILURE"
	CodeNotReady            = "NOT_READY"
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(status int, code, message string, err error) *AppError {
	return &AppError{StatusCode: status, Code: code, Message: message, Err: err}
}

func NewInvalidCodeError() *AppError {
	return newAppError(http.StatusNotFound, CodeInvalidCode, "Access code not recognised", nil)
}

func NewExpiredError() *AppError {
	return newAppError(http.StatusGone, CodeExpired, "Access code has expired", nil)
}

func NewNoPuzzlesError(gameID string) *AppError {
	e := newAppError(http.StatusUnprocessableEntity, CodeNoPuzzlesConfigured, "Game has no puzzles configured", nil)
	e.Data = gameID
	return e
}

func NewPersistenceError(err error) *AppError {
	return newAppError(http.StatusInternalServerError, CodePersistenceFailure, "Storage operation failed", err)
}

func NewNotReadyError(message string) *AppError {
	return newAppError(http.StatusConflict, CodeNotReady, message, nil)
}

func NewBadRequestError(err error, message string) *AppError {
	return newAppError(http.StatusBadRequest, CodeBadRequest, message, err)
}

func NewUnauthorizedError(err error, message string) *AppError {
	return newAppError(http.StatusUnauthorized, CodeUnauthorized, message, err)
}

func NewForbiddenError(err error, message string) *AppError {
	return newAppError(http.StatusForbidden, CodeForbidden, message, err)
}

func NewNotFoundError(message string) *AppError {
	return newAppError(http.StatusNotFound, CodeNotFound, message, nil)
}

func NewInternalError(err error, message string) *AppError {
	return newAppError(http.StatusInternalServerError, CodeInternal, message, err)
}

// GetAppError unwraps err down to the first AppError in the chain.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsCode(err error, code string) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}
