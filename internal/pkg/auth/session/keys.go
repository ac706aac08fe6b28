package session

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keyInfoPrefix = "Chatify Session Key"
	keySize       = 32
)

// CookieNames lists the session cookie names in probe order: production (secure) first,
// then development, then the two legacy equivalents.
var CookieNames = []string{
	"__Secure-authjs.session-token",
	"authjs.session-token",
	"__Secure-next-auth.session-token",
	"next-auth.session-token",
}

// deriveKey expands the shared secret into the HMAC key for one cookie name.
func deriveKey(secret, cookieName string) ([]byte, error) {
	info := fmt.Sprintf("%s (%s)", keyInfoPrefix, cookieName)
	r := hkdf.New(sha256.New, []byte(secret), []byte(cookieName), []byte(info))

	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key for %s: %w", cookieName, err)
	}
	return key, nil
}
