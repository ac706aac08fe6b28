package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-value"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	c, err := NewCodec(testSecret)
	require.NoError(t, err)
	return c
}

func issue(t *testing.T, c *Codec, cookieName, userID string) string {
	t.Helper()

	token, err := c.Issue(cookieName, Identity{ID: userID, Email: userID + "@example.com", Name: "User " + userID}, time.Hour)
	require.NoError(t, err)
	return token
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := NewCodec("")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestDecode_EveryCookieName(t *testing.T) {
	c := newTestCodec(t)

	for _, name := range CookieNames {
		t.Run(name, func(t *testing.T) {
			header := name + "=" + issue(t, c, name, "u-1")

			id, err := c.Decode(header)
			require.NoError(t, err)
			assert.Equal(t, "u-1", id.ID)
			assert.Equal(t, "u-1@example.com", id.Email)
			assert.Equal(t, "User u-1", id.Name)
			assert.Equal(t, name, id.Cookie)
		})
	}
}

func TestDecode_LegacyDevelopmentCookieOnly(t *testing.T) {
	c := newTestCodec(t)
	token := issue(t, c, "next-auth.session-token", "legacy-user")

	id, err := c.Decode("theme=dark; next-auth.session-token=" + token + "; lang=en")
	require.NoError(t, err)
	assert.Equal(t, "legacy-user", id.ID)
	assert.Equal(t, "next-auth.session-token", id.Cookie)
}

func TestDecode_FirstPresentNameWins(t *testing.T) {
	c := newTestCodec(t)
	secure := issue(t, c, "__Secure-authjs.session-token", "secure-user")
	dev := issue(t, c, "authjs.session-token", "dev-user")

	id, err := c.Decode("authjs.session-token=" + dev + "; __Secure-authjs.session-token=" + secure)
	require.NoError(t, err)
	assert.Equal(t, "secure-user", id.ID)
	assert.Equal(t, "__Secure-authjs.session-token", id.Cookie)
}

func TestDecode_EmptyValueIsSkipped(t *testing.T) {
	c := newTestCodec(t)
	dev := issue(t, c, "authjs.session-token", "dev-user")

	id, err := c.Decode("__Secure-authjs.session-token=; authjs.session-token=" + dev)
	require.NoError(t, err)
	assert.Equal(t, "dev-user", id.ID)
}

func TestDecode_NoSession(t *testing.T) {
	c := newTestCodec(t)

	for _, header := range []string{"", "   "} {
		_, err := c.Decode(header)
		assert.ErrorIs(t, err, ErrNoSession)
	}
}

func TestDecode_NoSessionToken(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.Decode("theme=dark; csrf=abc")
	assert.ErrorIs(t, err, ErrNoSessionToken)
}

func TestDecode_TokenBoundToCookieVariant(t *testing.T) {
	c := newTestCodec(t)
	devToken := issue(t, c, "authjs.session-token", "u-1")

	_, err := c.Decode("__Secure-authjs.session-token=" + devToken)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestDecode_InvalidTokens(t *testing.T) {
	c := newTestCodec(t)
	name := "authjs.session-token"

	other, err := NewCodec("another-secret")
	require.NoError(t, err)
	foreign, err := other.Issue(name, Identity{ID: "u-1"}, time.Hour)
	require.NoError(t, err)

	expired, err := c.Issue(name, Identity{ID: "u-1"}, -time.Minute)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		StandardClaims: jwt.StandardClaims{Subject: "u-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"wrong secret": foreign,
		"expired":      expired,
		"malformed":    "not-a-token",
		"alg none":     unsigned,
	}

	for label, token := range cases {
		t.Run(label, func(t *testing.T) {
			_, err := c.Decode(name + "=" + token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestDecode_SubjectRules(t *testing.T) {
	c := newTestCodec(t)
	name := "authjs.session-token"
	key, err := deriveKey(testSecret, name)
	require.NoError(t, err)

	sign := func(claims *Claims) string {
		claims.ExpiresAt = time.Now().Add(time.Hour).Unix()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}

	id, err := c.Decode(name + "=" + sign(&Claims{ID: "fallback-id"}))
	require.NoError(t, err)
	assert.Equal(t, "fallback-id", id.ID)

	_, err = c.Decode(name + "=" + sign(&Claims{Email: "nobody@example.com"}))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestIssue_UnknownCookieName(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.Issue("session", Identity{ID: "u-1"}, time.Hour)
	assert.Error(t, err)
}
