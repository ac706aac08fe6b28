/*
Package message holds the chat message as exchanged between the backend, the relay and clients.

The relay itself never interprets a message; it forwards the JSON object it was handed.
Clients decode it into Message.
*/
package message

import (
	"errors"
	"strings"

	"chatify/internal/pkg/randx"
)

// TempIDPrefix marks ids generated on the client for optimistic messages.
// Server ids never start with it.
const TempIDPrefix = randx.TempIDPrefix

// MaxTextLength is the longest text the backend accepts for a single message.
const MaxTextLength = 2000

// ErrEmptyMessage is returned when a message has neither text nor image.
var ErrEmptyMessage = errors.New("text or image is required")

// ErrTextTooLong is returned when the text exceeds MaxTextLength characters.
var ErrTextTooLong = errors.New("message too long (max 2000 characters)")

// Message is one chat message between two users.
type Message struct {
	ID         string  `json:"id"`
	Text       *string `json:"text"`
	Image      *string `json:"image"`
	SenderID   string  `json:"senderId"`
	ReceiverID string  `json:"receiverId"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`

	// IsOptimistic marks a locally rendered message not yet confirmed by the backend.
	IsOptimistic bool `json:"isOptimistic,omitempty"`
}

// Draft is the payload a client submits to send a message.
type Draft struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Validate checks that the draft carries text or an image and that text fits the limit.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Text) == "" && d.Image == "" {
		return ErrEmptyMessage
	}
	if len([]rune(d.Text)) > MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}

// IsTemporaryID reports whether id belongs to the client-side optimistic namespace.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// optional returns nil for an empty string so that JSON carries null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Optimistic builds the local placeholder for a draft.
func Optimistic(tempID, senderID, receiverID, createdAt string, d Draft) Message {
	return Message{
		ID:           tempID,
		Text:         optional(d.Text),
		Image:        optional(d.Image),
		SenderID:     senderID,
		ReceiverID:   receiverID,
		CreatedAt:    createdAt,
		IsOptimistic: true,
	}
}
