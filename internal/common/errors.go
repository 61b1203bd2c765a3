// Package common defines sentinel errors and constants shared by the
// dogstack client packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Row errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Auth errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrNoSession          = errors.New("no active session")
	ErrTokenExpired       = errors.New("token expired")

	// Transport errors.
	ErrUnavailable = errors.New("backend unavailable")

	// Deep-link errors.
	ErrNoAuthCode     = errors.New("url carries no auth code")
	ErrNoCodeVerifier = errors.New("no pending code verifier")
)
