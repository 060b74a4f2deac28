package service

import "errors"

// Error classes surfaced to the transport layer. Handlers map these to
// HTTP statuses with errors.Is; anything unrecognized becomes a 500.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
