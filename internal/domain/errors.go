package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique document already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput marks caller mistakes that map to 4xx responses.
	ErrInvalidInput = errors.New("invalid input")
)
