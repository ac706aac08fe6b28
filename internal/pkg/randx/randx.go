/*
Package randx generates identifiers for connections and optimistic messages.

Server-issued message ids come from the backend's database. Ids minted here carry a
prefix the backend never uses, so a placeholder can never be mistaken for a stored message.
*/
package randx

import (
	"github.com/google/uuid"
)

// TempIDPrefix marks client-generated ids of messages not yet confirmed by the backend.
const TempIDPrefix = "temp-"

// TempMessageID returns a fresh id in the optimistic namespace.
func TempMessageID() string {
	return TempIDPrefix + uuid.NewString()
}

// ConnID returns a random identifier for one relay connection.
func ConnID() string {
	return uuid.New().String()
}
