package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound               = "not_found"
	CodeAlreadyExists          = "already_exists"
	CodeInvalidData            = "invalid_data"
	CodeInvalidStateTransition = "invalid_state_transition"
	CodeStaleSupersession      = "stale_supersession"
	CodeResourceExhausted      = "resource_exhausted"
	CodeForbidden              = "forbidden"
	CodeUnauthorized           = "unauthorized"
	CodeInternal               = "internal"
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

// Message is the client-safe rendering. Internal errors collapse to a
// fixed string so wrapped store details never reach the wire.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.Code == CodeInternal {
		return "internal error"
	}
	return e.Error()
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func AlreadyExists(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodeAlreadyExists, fmt.Errorf(format, args...))
}

func InvalidData(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeInvalidData, fmt.Errorf(format, args...))
}

func InvalidStateTransition(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodeInvalidStateTransition, fmt.Errorf(format, args...))
}

func StaleSupersession(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodeStaleSupersession, fmt.Errorf(format, args...))
}

func ResourceExhausted(format string, args ...interface{}) *Error {
	return New(http.StatusServiceUnavailable, CodeResourceExhausted, fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(http.StatusForbidden, CodeForbidden, fmt.Errorf(format, args...))
}

func Unauthorized(format string, args ...interface{}) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Errorf(format, args...))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// From maps any error onto the wire taxonomy. Unknown errors become a
// generic internal error so store details never cross the boundary.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, CodeInternal, errors.New("internal error"))
}

func IsCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
