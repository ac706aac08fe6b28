/*
Package relay contains the real-time delivery core: authenticated WebSocket connections,
the gateway that registers them in the presence table, and push delivery of new messages.

This file defines Conn, one live WebSocket connection with its read and write pumps.
*/
package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatify/internal/pkg/auth/session"
	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/randx"
)

const (
	// timeout for a single write to the peer.
	writeWait = 10 * time.Second

	// how long the peer may stay silent (no pong) before the connection is dropped.
	pongWait = 60 * time.Second

	// ping interval; must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// largest inbound frame accepted. The relay is push-only, so inbound frames are tiny.
	maxMessageSize = 4096

	// frames buffered per connection before it is treated as a slow consumer.
	sendQueueSize = 256
)

// State is the lifecycle stage of a Conn.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Conn is one authenticated WebSocket connection.
// Frames are queued on send and written by WritePump only, so the order in which the
// gateway emits frames is the order the peer observes them.
type Conn struct {
	// ID identifies the connection in logs; distinct connections of one user have distinct IDs.
	ID string

	identity session.Identity
	gateway  *Gateway
	ws       *websocket.Conn

	// send buffers outbound frames. It is never closed; done signals termination.
	send chan []byte

	state atomic.Int32

	done        chan struct{}
	closeOnce   sync.Once
	closeCode   int
	closeReason string

	logger zerolog.Logger
}

// NewConn wraps an upgraded WebSocket for identity. The pumps are not started.
func NewConn(g *Gateway, ws *websocket.Conn, identity session.Identity) *Conn {
	id := randx.ConnID()

	return &Conn{
		ID:       id,
		identity: identity,
		gateway:  g,
		ws:       ws,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
		logger: logx.Component("conn").With().
			Str("conn_id", id).
			Str("user_id", identity.ID).
			Logger(),
	}
}

// UserID returns the presence key of the connection.
func (c *Conn) UserID() string {
	return c.identity.ID
}

func (c *Conn) currentState() State {
	return State(c.state.Load())
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
}

// Close asks the write pump to send a close frame with code and reason and tear the
// socket down. Only the first call has an effect.
func (c *Conn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// enqueue queues a frame without blocking. A full queue marks the peer as a slow
// consumer: the frame is dropped and the connection closed.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, closing slow connection.")
		c.Close(websocket.CloseTryAgainLater, "send queue overflow")
		return false
	}
}

// ReadPump reads until the peer goes away, keeping the read deadline alive with pongs.
// Its exit is the disconnect signal: the gateway is told exactly once.
func (c *Conn) ReadPump() {
	defer func() {
		c.gateway.Disconnect(c)
		c.Close(websocket.CloseNormalClosure, "")
	}()

	c.ws.SetReadLimit(maxMessageSize)

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}

		c.logger.Debug().Int("bytes", len(data)).Msg("Ignoring inbound frame")
	}
}

// WritePump drains the send queue and pings the peer until the connection is closed.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Close(websocket.CloseAbnormalClosure, "")

		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Socket close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.writeClose()
			return
		}
	}
}

// write sends one frame; it returns false when the pump should stop.
func (c *Conn) write(messageType int, data []byte) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.ws.WriteMessage(messageType, data); err != nil {
		c.logger.Info().Err(err).Int("message_type", messageType).Msg("Error writing to connection")
		return false
	}

	return true
}

// writeClose sends the close frame recorded by Close.
func (c *Conn) writeClose() {
	code := c.closeCode
	if code == 0 || code == websocket.CloseAbnormalClosure {
		code = websocket.CloseNormalClosure
	}

	msg := websocket.FormatCloseMessage(code, c.closeReason)
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to write close frame")
	}
}
