package http

import (
	"fmt"
	"net/http"
)

// AppError is an error with enough structure to render as an API
// response: a stable machine code, a human message, and the HTTP
// status to serve it under.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

// NewAppError builds an error for the given status. Params stays nil
// until WithParam is called so empty maps never reach the wire.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithParam attaches one key of structured detail.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError records the underlying cause. It stays out of the rendered
// response but is reachable through Unwrap for logging.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// Shorthands for the statuses the handlers actually serve.

func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}
