// Package apperr carries the machine-readable error codes surfaced to
// callers together with the HTTP status class each one maps to.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeBadRequest    Code = "BAD_REQUEST"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConfigMissing Code = "CONFIG_MISSING"
	CodeUpstreamHTTP  Code = "AI_HTTP_ERROR"
	CodeTimeout       Code = "AI_TIMEOUT"
	CodeBlocked       Code = "AI_BLOCKED"
	CodeNoImage       Code = "AI_NO_IMAGE"
	CodeEmptyResponse Code = "AI_EMPTY_RESPONSE"
	CodeInternal      Code = "INTERNAL_ERROR"
)

type Error struct {
	Status  int
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether issuing a fresh request may succeed.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case CodeUpstreamHTTP, CodeTimeout:
		return true
	default:
		return false
	}
}

// WithDetail returns e with key set in Details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Sprintf(format, args...))
}

func ConfigMissing(format string, args ...any) *Error {
	return New(http.StatusInternalServerError, CodeConfigMissing, fmt.Sprintf(format, args...))
}

func Upstream(status int, message string) *Error {
	return New(http.StatusBadGateway, CodeUpstreamHTTP, message).WithDetail("status", status)
}

func Timeout(err error) *Error {
	return &Error{Status: http.StatusGatewayTimeout, Code: CodeTimeout, Message: "generation timed out", Err: err}
}

func Blocked(message string) *Error {
	return New(http.StatusUnprocessableEntity, CodeBlocked, message)
}

func NoImage(message string) *Error {
	return New(http.StatusBadGateway, CodeNoImage, message)
}

func EmptyResponse() *Error {
	return New(http.StatusBadGateway, CodeEmptyResponse, "generation response was empty")
}

func Internal(message string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}

// From classifies any error into the taxonomy. Deadline expiry becomes
// AI_TIMEOUT; anything unrecognised becomes INTERNAL_ERROR.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err)
	}
	return Internal("", err)
}
