package service

import "errors"

// Causes carried inside CodeUnauthorized errors so callers can tell them apart.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("inactive account")
)
