package service

import "errors"

// Domain errors mapped to HTTP statuses by the handler layer.
var (
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("access denied")
	ErrConflict  = errors.New("resource already exists")
)
