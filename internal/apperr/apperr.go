// Package apperr classifies failures into client-visible kinds and renders them.
//
// Handlers record failures with c.Error and return; Handler is the only place
// that turns an error into a response body.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/abduss/bugtrack/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind is the client-visible category of a failure.
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindAuth
	KindPermission
	KindNotFound
	KindConflict
)

const genericServerMessage = "Something went wrong!"

// Status maps the kind onto an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not-found"
	case KindConflict:
		return "conflict"
	default:
		return "server"
	}
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified failure with a message safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	cause   error
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation creates a KindValidation error carrying field-level messages.
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
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

// Wrap returns a copy of e that reports err as its cause.
func (e *Error) Wrap(err error) *Error {
	wrapped := *e
	wrapped.cause = err
	return &wrapped
}

// KindOf reports the kind of err; unclassified errors are KindServer.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindServer
}

// Handler renders the last error recorded on the context once the chain returns.
// Internal detail is only exposed when devMode is set.
func Handler(devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		respond(c, c.Errors.Last().Err, devMode, "")
	}
}

// Recovery converts panics into server errors rendered like any other failure.
func Recovery(devMode bool) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		respond(c, fmt.Errorf("panic: %v", recovered), devMode, string(debug.Stack()))
		c.Abort()
	})
}

func respond(c *gin.Context, err error, devMode bool, stack string) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = New(KindServer, genericServerMessage)
	}

	status := appErr.Kind.Status()
	if status >= http.StatusInternalServerError {
		logger.FromContext(c).Error("request failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	body := gin.H{
		"success": false,
		"status":  appErr.Kind.String(),
		"message": appErr.Message,
	}
	if len(appErr.Fields) > 0 {
		body["errors"] = appErr.Fields
	}
	if devMode {
		body["error"] = err.Error()
		if stack != "" {
			body["stack"] = stack
		}
	}

	c.JSON(status, body)
}
