package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown login name or a wrong
	// password. Callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNilUser            = errors.New("user is required")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
)
