package auth

import "errors"

// Sentinel errors returned by Service and the user stores. The HTTP layer maps them
// onto apperr kinds in classify.
var (
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthorized       = errors.New("unauthorized")
)
