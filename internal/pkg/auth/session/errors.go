package session

import "errors"

// Handshake rejections. Every decode failure wraps exactly one of these.
var (
	// ErrNoSession means the cookie header was missing or empty.
	ErrNoSession = errors.New("no session")

	// ErrNoSessionToken means none of the session cookie names carried a value.
	ErrNoSessionToken = errors.New("no session token")

	// ErrInvalidSession means the token failed verification or has no subject.
	ErrInvalidSession = errors.New("invalid session")
)

// ErrNoSecret is returned when a codec is built without a signing secret.
var ErrNoSecret = errors.New("session secret is not configured")
