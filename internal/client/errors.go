package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed API call the way the server's error taxonomy does.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not-found"
	KindConflict   Kind = "conflict"
	KindServer     Kind = "server"
	KindNetwork    Kind = "network"
	KindUnknown    Kind = "unknown"
)

// ErrSuperseded is returned by a store fetch whose result was discarded because a newer
// request was issued before it completed.
var ErrSuperseded = errors.New("request superseded by a newer one")

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a failed API call.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// errorBody is the failure envelope written by the API.
type errorBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

func statusError(status int, body errorBody) *Error {
	e := &Error{Status: status, Message: body.Message}
	switch {
	case status == http.StatusBadRequest:
		e.Kind = KindValidation
		e.Fields = body.Errors
		if e.Message == "" {
			e.Message = "Bad request"
		}
	case status == http.StatusUnauthorized:
		e.Kind = KindAuth
		if e.Message == "" {
			e.Message = "Session expired. Please login again."
		}
	case status == http.StatusForbidden:
		e.Kind = KindPermission
		e.Message = "You do not have permission to perform this action."
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = "Resource not found."
	case status == http.StatusConflict:
		e.Kind = KindConflict
	case status >= http.StatusInternalServerError:
		e.Kind = KindServer
		e.Message = "Server error. Please try again later."
	default:
		e.Kind = KindUnknown
		if e.Message == "" {
			e.Message = "An unexpected error occurred."
		}
	}
	return e
}

func networkError(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "Network error. Please check your connection.",
		Err:     err,
	}
}
