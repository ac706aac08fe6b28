/*
Package event defines the frames pushed from the relay to browser and terminal clients.

Every WebSocket text frame is a JSON object {"event": <name>, "data": <payload>}.
*/
package event

import (
	"encoding/json"
	"fmt"
)

const (
	// OnlineUsersChanged carries the complete, sorted list of online user ids.
	// Each frame replaces the previous list; it is never a delta.
	OnlineUsersChanged = "online users changed"

	// NewMessage carries a persisted message object, forwarded unchanged.
	NewMessage = "new message"
)

// Frame is the envelope of every pushed event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode marshals data into a frame for the named event. A json.RawMessage payload is
// embedded as-is (after validation), other values are marshaled first.
func Encode(name string, data any) ([]byte, error) {
	raw, ok := data.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %q payload: %w", name, err)
		}
		raw = b
	}

	frame, err := json.Marshal(Frame{Event: name, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %q frame: %w", name, err)
	}
	return frame, nil
}

// Decode parses a frame. Unknown event names are returned as-is for the caller to ignore.
func Decode(b []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("decode frame: missing event name")
	}
	return f, nil
}
