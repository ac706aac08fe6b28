package relay

import (
	"encoding/json"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatify/internal/app/event"
	"chatify/internal/pkg/auth/session"
	"chatify/internal/pkg/metrics"
)

func newTestGateway() *Gateway {
	return NewGateway(metrics.NewRelay())
}

// newTestConn builds a Conn without a socket; tests inspect its send queue directly.
func newTestConn(g *Gateway, userID string) *Conn {
	return NewConn(g, nil, session.Identity{ID: userID})
}

func drain(t *testing.T, c *Conn) []event.Frame {
	t.Helper()

	var frames []event.Frame
	for {
		select {
		case b := <-c.send:
			f, err := event.Decode(b)
			require.NoError(t, err)
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func onlineList(t *testing.T, f event.Frame) []string {
	t.Helper()

	require.Equal(t, event.OnlineUsersChanged, f.Event)
	var users []string
	require.NoError(t, json.Unmarshal(f.Data, &users))
	return users
}

func TestGateway_ConnectBroadcastsToAll(t *testing.T) {
	g := newTestGateway()
	alice := newTestConn(g, "alice")
	bob := newTestConn(g, "bob")

	assert.Equal(t, StateConnecting, alice.currentState())
	require.True(t, g.Connect(alice))
	assert.Equal(t, StateAuthenticated, alice.currentState())

	frames := drain(t, alice)
	require.Len(t, frames, 1)
	assert.Equal(t, []string{"alice"}, onlineList(t, frames[0]))

	require.True(t, g.Connect(bob))

	for _, c := range []*Conn{alice, bob} {
		frames := drain(t, c)
		require.Len(t, frames, 1, "exactly one broadcast per connect")
		assert.Equal(t, []string{"alice", "bob"}, onlineList(t, frames[0]))
	}
	assert.Equal(t, 2, g.OnlineCount())
}

func TestGateway_DisconnectBroadcastsOnceToRemaining(t *testing.T) {
	g := newTestGateway()
	alice := newTestConn(g, "alice")
	bob := newTestConn(g, "bob")
	g.Connect(alice)
	g.Connect(bob)
	drain(t, alice)
	drain(t, bob)

	g.Disconnect(bob)
	g.Disconnect(bob)

	assert.Equal(t, StateDisconnected, bob.currentState())
	assert.Empty(t, drain(t, bob))

	frames := drain(t, alice)
	require.Len(t, frames, 1)
	assert.Equal(t, []string{"alice"}, onlineList(t, frames[0]))
	assert.Equal(t, []string{"alice"}, g.OnlineUsers())
}

func TestGateway_EmptySnapshotIsEmptyArray(t *testing.T) {
	g := newTestGateway()
	alice := newTestConn(g, "alice")
	watcher := newTestConn(g, "bob")
	g.Connect(alice)
	g.Connect(watcher)
	g.Disconnect(alice)
	drain(t, watcher)

	g.Disconnect(watcher)
	assert.Equal(t, []string{}, g.OnlineUsers())

	frame, err := event.Encode(event.OnlineUsersChanged, g.OnlineUsers())
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"online users changed","data":[]}`, string(frame))
}

func TestGateway_ReconnectBeforeStaleDisconnect(t *testing.T) {
	g := newTestGateway()
	oldConn := newTestConn(g, "alice")
	newConn := newTestConn(g, "alice")
	bob := newTestConn(g, "bob")

	g.Connect(bob)
	g.Connect(oldConn)
	g.Connect(newConn)
	drain(t, bob)

	// The late disconnect of the replaced socket must not take alice offline.
	g.Disconnect(oldConn)

	assert.Equal(t, []string{"alice", "bob"}, g.OnlineUsers())
	frames := drain(t, bob)
	require.Len(t, frames, 1)
	assert.Equal(t, []string{"alice", "bob"}, onlineList(t, frames[0]))

	delivered, err := g.Deliver("alice", json.RawMessage(`{"id":"m1"}`))
	require.NoError(t, err)
	assert.True(t, delivered)

	drain(t, oldConn)
	var pushed []event.Frame
	for _, f := range drain(t, newConn) {
		if f.Event == event.NewMessage {
			pushed = append(pushed, f)
		}
	}
	require.Len(t, pushed, 1, "push goes to the newest connection")
}

func TestGateway_SupersededConnectionStillReceivesBroadcasts(t *testing.T) {
	g := newTestGateway()
	oldConn := newTestConn(g, "alice")
	newConn := newTestConn(g, "alice")
	g.Connect(oldConn)
	g.Connect(newConn)
	drain(t, oldConn)

	g.Connect(newTestConn(g, "bob"))

	frames := drain(t, oldConn)
	require.Len(t, frames, 1)
	assert.Equal(t, []string{"alice", "bob"}, onlineList(t, frames[0]))
}

func TestGateway_DeliverOnline(t *testing.T) {
	g := newTestGateway()
	alice := newTestConn(g, "alice")
	bob := newTestConn(g, "bob")
	g.Connect(alice)
	g.Connect(bob)
	drain(t, alice)
	drain(t, bob)

	payload := `{"id":"m1","text":"hi","image":null,"senderId":"alice","receiverId":"bob","createdAt":"2026-01-01T00:00:00Z"}`
	delivered, err := g.Deliver("bob", json.RawMessage(payload))
	require.NoError(t, err)
	assert.True(t, delivered)

	frames := drain(t, bob)
	require.Len(t, frames, 1)
	assert.Equal(t, event.NewMessage, frames[0].Event)
	assert.JSONEq(t, payload, string(frames[0].Data))
	assert.Empty(t, drain(t, alice))
}

func TestGateway_DeliverOffline(t *testing.T) {
	g := newTestGateway()
	alice := newTestConn(g, "alice")
	g.Connect(alice)
	drain(t, alice)

	delivered, err := g.Deliver("bob", json.RawMessage(`{"id":"m1"}`))
	require.NoError(t, err)
	assert.False(t, delivered)
	assert.Empty(t, drain(t, alice), "no event is emitted for an offline recipient")
}

func TestGateway_DeliverPreservesOrder(t *testing.T) {
	g := newTestGateway()
	bob := newTestConn(g, "bob")
	g.Connect(bob)
	drain(t, bob)

	for _, id := range []string{"m1", "m2", "m3"} {
		_, err := g.Deliver("bob", json.RawMessage(`{"id":"`+id+`"}`))
		require.NoError(t, err)
	}

	var ids []string
	for _, f := range drain(t, bob) {
		var m struct{ ID string }
		require.NoError(t, json.Unmarshal(f.Data, &m))
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
}

func TestGateway_DeliverRejectsInvalidJSON(t *testing.T) {
	g := newTestGateway()
	g.Connect(newTestConn(g, "bob"))

	_, err := g.Deliver("bob", json.RawMessage(`{"id":`))
	assert.Error(t, err)
}

func TestGateway_SlowConsumerIsClosed(t *testing.T) {
	g := newTestGateway()
	bob := newTestConn(g, "bob")
	g.Connect(bob)

	msg := json.RawMessage(`{"id":"m"}`)
	for i := 0; i < sendQueueSize-1; i++ {
		delivered, err := g.Deliver("bob", msg)
		require.NoError(t, err)
		require.True(t, delivered)
	}

	delivered, err := g.Deliver("bob", msg)
	require.NoError(t, err)
	assert.False(t, delivered)

	select {
	case <-bob.done:
	default:
		t.Fatal("slow connection should be closed")
	}
	assert.Equal(t, websocket.CloseTryAgainLater, bob.closeCode)
}

func TestGateway_ShutdownClosesAndRefuses(t *testing.T) {
	g := newTestGateway()
	alice := newTestConn(g, "alice")
	g.Connect(alice)

	g.Shutdown()

	select {
	case <-alice.done:
	default:
		t.Fatal("live connection should be closed on shutdown")
	}

	late := newTestConn(g, "bob")
	assert.False(t, g.Connect(late))
	assert.Equal(t, StateDisconnected, late.currentState())
	assert.Equal(t, []string{"alice"}, g.OnlineUsers(), "presence clears through the read pumps")
}
