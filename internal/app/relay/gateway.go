/*
Package relay contains the real-time delivery core: authenticated WebSocket connections,
the gateway that registers them in the presence table, and push delivery of new messages.

This file defines the Gateway. It owns the presence table and the set of live
connections; connect, disconnect, presence broadcast and message delivery all run
under one lock so a fast reconnect can never interleave with the teardown of the
connection it replaced.
*/
package relay

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatify/internal/app/event"
	"chatify/internal/app/presence"
	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/metrics"
)

// Gateway coordinates live connections and the presence table.
type Gateway struct {
	// mu serializes every mutation of presence and live, and every broadcast.
	mu sync.Mutex

	// presence maps each user to its newest connection.
	presence *presence.Table[*Conn]

	// live holds every open connection, including ones superseded in presence.
	live map[*Conn]struct{}

	// closed is set by Shutdown; later connections are refused.
	closed bool

	metrics *metrics.Relay
	logger  zerolog.Logger
}

// NewGateway returns a Gateway with an empty presence table.
func NewGateway(m *metrics.Relay) *Gateway {
	return &Gateway{
		presence: presence.NewTable[*Conn](),
		live:     make(map[*Conn]struct{}),
		metrics:  m,
		logger:   logx.Component("gateway"),
	}
}

// Connect marks c authenticated, registers it for its user (replacing any earlier
// connection of that user) and broadcasts the presence snapshot to every live connection.
// It returns false when the gateway is shutting down; c is then closed.
func (g *Gateway) Connect(c *Conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		c.setState(StateDisconnected)
		c.Close(websocket.CloseGoingAway, "server shutting down")
		return false
	}

	c.setState(StateAuthenticated)
	g.live[c] = struct{}{}

	if previous, replaced := g.presence.Register(c.UserID(), c); replaced {
		g.logger.Info().
			Str("user_id", c.UserID()).
			Str("conn_id", c.ID).
			Str("superseded_conn_id", previous.ID).
			Msg("Connection supersedes an earlier one for this user.")
	}

	g.logger.Info().
		Str("user_id", c.UserID()).
		Str("conn_id", c.ID).
		Int("online_users", g.presence.Len()).
		Msg("User connected.")

	g.observeLocked()
	g.broadcastPresenceLocked()
	return true
}

// Disconnect removes c and broadcasts the refreshed snapshot. The presence entry is only
// removed when it still points at c. Calling Disconnect again for c has no effect.
func (g *Gateway) Disconnect(c *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.currentState() == StateDisconnected {
		return
	}
	c.setState(StateDisconnected)

	if _, ok := g.live[c]; !ok {
		return
	}
	delete(g.live, c)

	if g.presence.Unregister(c.UserID(), c) {
		g.logger.Info().
			Str("user_id", c.UserID()).
			Str("conn_id", c.ID).
			Int("online_users", g.presence.Len()).
			Msg("User disconnected.")
	} else {
		g.logger.Info().
			Str("user_id", c.UserID()).
			Str("conn_id", c.ID).
			Msg("Superseded connection closed; presence unchanged.")
	}

	g.observeLocked()
	g.broadcastPresenceLocked()
}

// Deliver pushes message to the recipient's registered connection as a "new message"
// event. delivered is false when the recipient is offline or its connection cannot
// take the frame; that is a normal outcome, not an error.
func (g *Gateway) Deliver(recipientID string, message json.RawMessage) (delivered bool, err error) {
	frame, err := event.Encode(event.NewMessage, message)
	if err != nil {
		return false, fmt.Errorf("encode message for %s: %w", recipientID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.presence.Lookup(recipientID)
	if !ok {
		g.logger.Debug().Str("recipient_id", recipientID).Msg("Recipient offline, message stored only.")
		return false, nil
	}

	if !c.enqueue(frame) {
		g.metrics.DroppedFrames.Inc()
		g.logger.Warn().Str("recipient_id", recipientID).Str("conn_id", c.ID).Msg("Recipient connection rejected the message frame.")
		return false, nil
	}

	g.logger.Debug().Str("recipient_id", recipientID).Str("conn_id", c.ID).Msg("Message pushed to recipient.")
	return true, nil
}

// OnlineUsers returns the sorted ids of users with a registered connection.
func (g *Gateway) OnlineUsers() []string {
	return g.presence.Snapshot()
}

// OnlineCount returns the number of users with a registered connection.
func (g *Gateway) OnlineCount() int {
	return g.presence.Len()
}

// Shutdown refuses new connections and asks every live connection to close.
// Their read pumps then disconnect them through the normal path.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
	for c := range g.live {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}

	g.logger.Info().Int("closing", len(g.live)).Msg("Gateway shutdown requested.")
}

// broadcastPresenceLocked sends the full online list to every live connection.
// The caller holds g.mu.
func (g *Gateway) broadcastPresenceLocked() {
	frame, err := event.Encode(event.OnlineUsersChanged, g.presence.Snapshot())
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to encode presence broadcast.")
		return
	}

	for c := range g.live {
		if !c.enqueue(frame) {
			g.metrics.DroppedFrames.Inc()
		}
	}
}

// observeLocked refreshes the gauges. The caller holds g.mu.
func (g *Gateway) observeLocked() {
	g.metrics.OnlineUsers.Set(float64(g.presence.Len()))
	g.metrics.LiveConnections.Set(float64(len(g.live)))
}
