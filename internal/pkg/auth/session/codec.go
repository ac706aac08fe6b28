package session

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

// TokenIssuer identifies tokens minted by Issue.
const TokenIssuer = "chatify"

// Codec verifies and mints session credentials. Keys are derived once at construction,
// so Decode only reads immutable state and is safe for concurrent use.
type Codec struct {
	names []string
	keys  map[string][]byte
}

// NewCodec derives the per-cookie keys for CookieNames from secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	c := &Codec{
		names: slices.Clone(CookieNames),
		keys:  make(map[string][]byte, len(CookieNames)),
	}

	for _, name := range c.names {
		key, err := deriveKey(secret, name)
		if err != nil {
			return nil, err
		}
		c.keys[name] = key
	}

	return c, nil
}

// Decode extracts and verifies the session credential found in a raw Cookie header.
// The first cookie name in probe order that carries a value is used; its name is the salt.
func (c *Codec) Decode(cookieHeader string) (Identity, error) {
	if strings.TrimSpace(cookieHeader) == "" {
		return Identity{}, ErrNoSession
	}

	name, token, ok := c.lookupToken(cookieHeader)
	if !ok {
		return Identity{}, ErrNoSessionToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.keys[name], nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidSession
	}

	userID := claims.subject()
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrInvalidSession)
	}

	return Identity{
		ID:     userID,
		Email:  claims.Email,
		Name:   claims.Name,
		Cookie: name,
	}, nil
}

// Issue mints a credential for id that verifies under cookieName.
func (c *Codec) Issue(cookieName string, id Identity, ttl time.Duration) (string, error) {
	key, ok := c.keys[cookieName]
	if !ok {
		return "", fmt.Errorf("unknown session cookie name %q", cookieName)
	}
	if id.ID == "" {
		return "", errors.New("identity has no id")
	}

	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   id.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
			Issuer:    TokenIssuer,
		},
		Email: id.Email,
		Name:  id.Name,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// lookupToken returns the first non-empty session cookie in probe order.
func (c *Codec) lookupToken(cookieHeader string) (name, token string, ok bool) {
	r := &http.Request{Header: http.Header{"Cookie": {cookieHeader}}}

	for _, name := range c.names {
		cookie, err := r.Cookie(name)
		if err != nil || cookie.Value == "" {
			continue
		}
		return name, cookie.Value, true
	}

	return "", "", false
}
