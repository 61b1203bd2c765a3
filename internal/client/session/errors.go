package session

import (
	"errors"

	"github.com/dmitrijs2005/dogstack/internal/common"
)

// AuthError is a failed user-initiated auth operation. Error returns a
// message fit for showing to the user; the cause stays reachable through
// errors.Is and errors.As.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Op + " failed: " + e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func newAuthError(op string, err error) *AuthError {
	return &AuthError{Op: op, Message: describe(err), Err: err}
}

func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid e-mail or password"
	case errors.Is(err, common.ErrAlreadyExists):
		return "an account with this e-mail already exists"
	case errors.Is(err, common.ErrUnavailable):
		return "the service is unreachable, please try again"
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrNoSession):
		return "your session has expired, please sign in again"
	default:
		return err.Error()
	}
}
