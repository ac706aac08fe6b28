package session

import "github.com/golang-jwt/jwt"

// Claims is the JWT body of a session credential.
// Subject carries the user id; ID is accepted as a fallback for older tokens.
type Claims struct {
	jwt.StandardClaims

	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Identity is the authenticated user behind a connection.
type Identity struct {
	// ID is the stable user identifier used as the presence key.
	ID string `json:"id"`

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	// Cookie is the cookie name the credential was read from (and salted with).
	Cookie string `json:"-"`
}

// subject returns the user id carried by the claims, preferring sub over id.
func (c *Claims) subject() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.ID
}
