package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes for failures the training engine surfaces to callers. Anything
// not listed here is reported as an opaque internal error.
const (
	CodeValidation       = "validation_failed"
	CodeAlreadyCompleted = "already_completed"
	CodeNotFound         = "not_found"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(msg string) *Error {
	return New(http.StatusBadRequest, CodeValidation, errors.New(msg))
}

func NotFound(msg string) *Error {
	return New(http.StatusNotFound, CodeNotFound, errors.New(msg))
}

// AlreadyCompleted blocks restarting a completed module. The message is
// part of the product contract and must reach the user verbatim.
func AlreadyCompleted() *Error {
	return New(http.StatusConflict, CodeAlreadyCompleted,
		errors.New("This module has already been completed. You cannot restart it to preserve time tracking accuracy."))
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
