package service

import (
	"errors"

	"canary/internal/domain"
)

var (
	// ErrMissingName is returned when a create or update payload has no name field.
	ErrMissingName = errors.New("missing name")

	ErrItemNotFound = domain.ErrItemNotFound
)
