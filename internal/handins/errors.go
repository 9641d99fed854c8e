package handins

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session is no longer logged in")
	ErrSessionClosed      = errors.New("session has been closed")
)

// AuthError is returned by Client.Authenticate for any failure to establish a
// session: rejected credentials, an unreachable server or a login page that
// does not look like handins.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("handins: login failed: %s: %s", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// FetchError is returned by Session.FetchRecords when the session is no
// longer valid or the assignments page cannot be read into records.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("handins: fetch records failed: %s: %s", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
