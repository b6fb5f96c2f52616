package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error is a handler-level failure that carries its own HTTP status
// and machine-readable code, mapped straight into the error envelope
// {"error": {"code","message","details?"}, "status": N}.
type Error struct {
	Status  int
	Code    string
	Message string
	Details interface{}
}

func (e *Error) Error() string { return e.Message }

// NewError returns an *Error with the given status/code/message.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Well-known error constructors for the API's error conventions.
func ErrValidation(message string) *Error {
	return NewError(http.StatusBadRequest, "VALIDATION_ERROR", message)
}

func ErrMissingField(field string) *Error {
	return NewError(http.StatusBadRequest, "MISSING_FIELD", "missing field: "+field)
}

func ErrNotFound(code, message string) *Error {
	return NewError(http.StatusNotFound, code, message)
}

func ErrConflict(code, message string) *Error {
	return NewError(http.StatusBadRequest, code, message)
}

func ErrInternal(message string) *Error {
	return NewError(http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// envelope is the wire shape of every error response.
type envelope struct {
	Error  envelopeBody `json:"error"`
	Status int          `json:"status"`
}

type envelopeBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// mapError converts any error into an *Error, defaulting unmapped
// errors to 500 INTERNAL_ERROR. errors.As lets a handler
// return a wrapped *Error and still be mapped correctly.
func mapError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ErrValidation(ve.Error())
	}
	var mfe *MissingFieldError
	if errors.As(err, &mfe) {
		return ErrMissingField(mfe.Field)
	}
	return ErrInternal(err.Error())
}

// ValidationError is the 400 VALIDATION_ERROR
// mapping for handlers built around Go's own
// idiomatic error values rather than *Error directly.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// MissingFieldError mirrors "KeyError -> 400 MISSING_FIELD".
type MissingFieldError struct{ Field string }

func (e *MissingFieldError) Error() string { return "missing field: " + e.Field }

// writeError renders err as the JSON error envelope. When debug is
// true, request metadata is attached as Details.
func writeError(w http.ResponseWriter, err error, debug bool, requestMeta map[string]string) {
	apiErr := mapError(err)
	body := envelope{
		Error:  envelopeBody{Code: apiErr.Code, Message: apiErr.Message},
		Status: apiErr.Status,
	}
	if debug {
		body.Error.Details = requestMeta
	} else if apiErr.Details != nil {
		body.Error.Details = apiErr.Details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(body)
}
