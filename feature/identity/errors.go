package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a token that is malformed, expired or foreign.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrEmailTaken indicates a credential already exists for the email.
	ErrEmailTaken = errors.New("email already registered")
)

// AuthError reports a failed identity operation: bad credentials or an
// unreachable provider.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("identity %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
