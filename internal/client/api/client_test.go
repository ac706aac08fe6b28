package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatify/internal/app/message"
)

const sessionCookie = "authjs.session-token"

func newBackend(t *testing.T, h http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: sessionCookie, Value: "tok"}})

	return srv, New(srv.URL+"/", jar)
}

func requireSession(t *testing.T, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if assert.NoError(t, err) {
		assert.Equal(t, "tok", c.Value)
	}
}

func TestSendMessage(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		requireSession(t, r)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/messages/send/user%2F2", r.URL.EscapedPath())
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var d message.Draft
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&d))
		assert.Equal(t, "hello", d.Text)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"srv-1","text":"hello","image":null,"senderId":"u1","receiverId":"user/2","createdAt":"2026-01-01T00:00:00Z"}`))
	})

	got, err := c.SendMessage(context.Background(), "user/2", message.Draft{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", got.ID)
	require.NotNil(t, got.Text)
	assert.Equal(t, "hello", *got.Text)
	assert.Nil(t, got.Image)
	assert.False(t, got.IsOptimistic)
}

func TestSendMessage_BackendError(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Text or image is required"}`))
	})

	_, err := c.SendMessage(context.Background(), "u2", message.Draft{})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "Text or image is required", statusErr.Message)
	assert.False(t, statusErr.Unauthorized())
}

func TestGetMessages(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		requireSession(t, r)
		assert.Equal(t, "/api/messages/u2", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"a","senderId":"u1","receiverId":"u2"},{"id":"b","senderId":"u2","receiverId":"u1"}]`))
	})

	got, err := c.GetMessages(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestGetMessages_EmptyIsNotNil(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	got, err := c.GetMessages(context.Background(), "u2")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCheckAuth(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		requireSession(t, r)
		assert.Equal(t, "/api/auth/check", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"u1","email":"a@example.com","fullName":"Ada","profilePic":null}`))
	})

	u, err := c.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Ada", u.DisplayName())
	assert.Nil(t, u.ProfilePic)
}

func TestCheckAuth_Unauthorized(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.CheckAuth(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.Unauthorized())
	assert.Equal(t, "Unauthorized", statusErr.Message)
}
