// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Caller input.
	ErrorValidation = errors.New("validation error")

	// Authentication and authorization.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrorForbidden        = errors.New("forbidden")

	// Registration conflict.
	ErrDuplicateUser = errors.New("duplicate user")

	// Provider faults.
	ErrUpstreamUnavailable   = errors.New("upstream unavailable")
	ErrUpstreamRejected      = errors.New("upstream rejected request")
	ErrUpstreamProtocolError = errors.New("upstream protocol error")

	// Persistence or unexpected faults.
	ErrorInternal = errors.New("internal error")
)
