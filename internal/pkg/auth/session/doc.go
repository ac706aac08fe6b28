/*
Package session decodes the signed session credential that browsers present to the relay.

The credential is an HS256 JWT stored in one of several cookie names (secure/plain,
current/legacy). The signing key is derived from the shared secret with HKDF, using the
cookie name as salt, so a token minted for one cookie variant never verifies under another.
*/
package session
