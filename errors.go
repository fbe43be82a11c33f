package enroller

import (
	"errors"
	"fmt"
)

var (
	ErrNoHosts            = errors.New("certenroller: no hosts to enroll")
	ErrMissingCredentials = errors.New("certenroller: no user certificate/key pair found")
)

// AuthError is returned when the issuer rejects the client's credentials.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("certenroller: authentication failed with status %d", e.Status)
}

// ConnectionError is returned when a request could not be completed at the
// transport level, before any HTTP status was obtained.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "certenroller: connection failed: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CryptoError is returned when key generation or CSR construction fails.
// It aborts the whole batch.
type CryptoError struct {
	Subject string
	Err     error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("certenroller: building credentials for %s: %s", e.Subject, e.Err.Error())
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NotIssuedError is returned when retrieval exhausted all attempts without a
// success response. LastStatus is 0 when no attempt ever produced a response
// at all, as opposed to a response with a non-success status.
type NotIssuedError struct {
	Attempts   int
	LastStatus int
}

func (e *NotIssuedError) Error() string {
	if e.LastStatus == 0 {
		return fmt.Sprintf("certenroller: certificate not issued after %d attempts, no response obtained", e.Attempts)
	}
	return fmt.Sprintf("certenroller: certificate not issued after %d attempts, last status %d", e.Attempts, e.LastStatus)
}

// isTransient reports whether err may resolve itself on a later retrieval
// attempt. Only authentication and connection failures qualify.
func isTransient(err error) bool {
	var ae *AuthError
	var ce *ConnectionError
	return errors.As(err, &ae) || errors.As(err, &ce)
}
