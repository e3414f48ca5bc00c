package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource (a snapshot, an export preset) does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing product id, discount outside 0..100).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidLineItem marks a line item that violates the engine's
// preconditions. It wraps ErrValidation so callers can match either.
var ErrInvalidLineItem = fmt.Errorf("%w: invalid line item", ErrValidation)

// ErrUnauthorized is returned when the backend API rejects the bearer token.
// Handlers should map this to HTTP 401 and clear the session cookie.
var ErrUnauthorized = errors.New("unauthorized")

// ErrUpstream is returned for any other backend API or transport failure.
// Handlers should map this to HTTP 502.
var ErrUpstream = errors.New("upstream error")
