/*
Package conn owns the client's long-lived relay connection.

A Manager dials the relay with the session cookies from a shared cookie jar, keeps the
latest presence list, publishes pushed messages to the event bus, and reconnects with
capped exponential backoff when the transport drops. Handshake rejections are final.
*/
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatify/internal/app/event"
	"chatify/internal/client/bus"
	"chatify/internal/pkg/logx"
)

const (
	socketPath = "/socket"

	writeWait = 10 * time.Second

	// the relay pings every 54s; a silent minute means the link is gone.
	pongWait = 60 * time.Second
)

// State is the connection state seen by the client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Options tunes reconnection. Zero values take the defaults.
type Options struct {
	// MaxAttempts is the number of reconnection attempts after a failure (default 5).
	MaxAttempts int

	// InitialDelay is the first reconnection delay (default 1s).
	InitialDelay time.Duration

	// MaxDelay caps the reconnection delay (default 5s).
	MaxDelay time.Duration

	// HandshakeTimeout bounds a single dial (default 10s).
	HandshakeTimeout time.Duration

	// OnGiveUp is called once the attempt budget is spent or the relay rejected the session.
	OnGiveUp func(err error)
}

func (o *Options) applyDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 5 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
}

// HandshakeError is returned when the relay refused the connection.
type HandshakeError struct {
	StatusCode int
	Reason     string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("relay refused connection (%d): %s", e.StatusCode, e.Reason)
}

// Permanent reports whether retrying cannot help: the session or origin was rejected.
func (e *HandshakeError) Permanent() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Manager owns at most one relay connection at a time.
type Manager struct {
	url    string
	dialer *websocket.Dialer
	bus    *bus.Bus
	opts   Options
	logger zerolog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	online []string
}

// New returns a Manager for the relay at socketURL (http, https, ws or wss base URL).
// Cookies for the handshake come from jar.
func New(socketURL string, jar http.CookieJar, b *bus.Bus, opts Options) (*Manager, error) {
	u, err := socketEndpoint(socketURL)
	if err != nil {
		return nil, err
	}

	opts.applyDefaults()

	return &Manager{
		url: u,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
			Jar:              jar,
		},
		bus:    b,
		opts:   opts,
		logger: logx.Component("client-conn"),
		online: []string{},
	}, nil
}

func socketEndpoint(raw string) (string, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}

	u.Path += socketPath
	return u.String(), nil
}

// Connect starts the connection loop and returns immediately. It is a no-op while a
// connection is open or being established. Cancelling ctx has the effect of Disconnect
// without clearing state synchronously.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDisconnected {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.state = StateConnecting
	m.cancel = cancel
	m.done = done

	go m.run(runCtx, done)
}

// Disconnect stops the connection loop and closes the socket. When it returns no further
// event is published. It clears the online set and is safe to call repeatedly.
// It must not be called from a bus handler.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.state = StateDisconnected
	m.online = []string{}
	m.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	m.mu.Lock()
	m.online = []string{}
	m.mu.Unlock()

	m.logger.Info().Msg("Disconnected from relay.")
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// OnlineUsers returns the latest presence list.
func (m *Manager) OnlineUsers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.online)
}

// IsOnline reports whether userID is in the latest presence list.
func (m *Manager) IsOnline(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Contains(m.online, userID)
}

// run dials, reads until the link drops, and redials with backoff until ctx ends or the
// attempt budget is spent.
func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		if m.done == done {
			// The parent context ended; nobody else reset the state.
			m.cancel()
			m.cancel, m.done = nil, nil
			m.state = StateDisconnected
			m.online = []string{}
		}
		m.mu.Unlock()

		close(done)
	}()

	policy := m.newBackOff(ctx)

	for {
		ws, err := m.dial(ctx)
		if err == nil {
			policy.Reset()
			err = m.serve(ctx, ws)
		}

		if ctx.Err() != nil {
			return
		}

		var hsErr *HandshakeError
		if errors.As(err, &hsErr) && hsErr.Permanent() {
			m.giveUp(ctx, err)
			return
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			m.giveUp(ctx, err)
			return
		}
		delay = min(delay, m.opts.MaxDelay)

		m.logger.Warn().Err(err).Dur("retry_in", delay).Msg("Relay connection lost, reconnecting.")
		m.setState(ctx, StateConnecting)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (m *Manager) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = m.opts.InitialDelay
	exp.MaxInterval = m.opts.MaxDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.5
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(m.opts.MaxAttempts)), ctx)
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	ws, res, err := m.dialer.DialContext(ctx, m.url, nil)
	if err == nil {
		return ws, nil
	}

	if errors.Is(err, websocket.ErrBadHandshake) && res != nil {
		return nil, &HandshakeError{StatusCode: res.StatusCode, Reason: handshakeReason(res)}
	}

	return nil, fmt.Errorf("dial relay: %w", err)
}

func handshakeReason(res *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if res.Body != nil && json.NewDecoder(res.Body).Decode(&body) == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(res.StatusCode)
}

// serve reads frames from ws until it fails or ctx ends.
func (m *Manager) serve(ctx context.Context, ws *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = ws.Close()
	})
	defer func() {
		if stop() {
			_ = ws.Close()
		}
	}()

	m.setState(ctx, StateConnected)
	m.logger.Info().Str("url", m.url).Msg("Connected to relay.")

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			m.clearOnline(ctx)
			return fmt.Errorf("read relay frame: %w", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		frame, err := event.Decode(data)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Ignoring malformed frame.")
			continue
		}

		m.dispatch(ctx, frame)
	}
}

func (m *Manager) dispatch(ctx context.Context, frame event.Frame) {
	switch frame.Event {
	case event.OnlineUsersChanged:
		var users []string
		if err := json.Unmarshal(frame.Data, &users); err != nil {
			m.logger.Warn().Err(err).Msg("Ignoring malformed presence list.")
			return
		}
		if users == nil {
			users = []string{}
		}

		m.mu.Lock()
		if ctx.Err() == nil {
			m.online = users
		}
		m.mu.Unlock()

	case event.NewMessage:
		if m.bus.Count(event.NewMessage) == 0 {
			m.logger.Debug().Msg("Pushed message has no subscriber.")
		}
		m.bus.Publish(event.NewMessage, frame.Data)

	default:
		m.logger.Debug().Str("event", frame.Event).Msg("Ignoring unknown event.")
	}
}

// setState records s unless the run has been cancelled, in which case Disconnect owns the state.
func (m *Manager) setState(ctx context.Context, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx.Err() == nil {
		m.state = s
	}
}

func (m *Manager) clearOnline(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx.Err() == nil {
		m.online = []string{}
	}
}

// giveUp leaves the manager disconnected with no presence data, ready for a new Connect.
func (m *Manager) giveUp(ctx context.Context, err error) {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.cancel()
	m.cancel, m.done = nil, nil
	m.state = StateDisconnected
	m.online = []string{}
	m.mu.Unlock()

	m.logger.Error().Err(err).Msg("Giving up on relay connection.")

	if m.opts.OnGiveUp != nil {
		m.opts.OnGiveUp(err)
	}
}
