package service

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrMissingToken        = errors.New("missing refresh token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)
