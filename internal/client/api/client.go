/*
Package api is the client for the backend REST endpoints the chat client depends on.

Requests carry the session cookies from the shared cookie jar, the same jar the relay
connection uses.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatify/internal/app/message"
	"chatify/internal/app/user"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// StatusError is returned for a non-2xx backend answer. Message is the backend's "error"
// field when present.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend answered %d: %s", e.StatusCode, e.Message)
}

// Unauthorized reports whether the session is missing or expired.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Client calls the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for baseURL that sends the cookies held by jar.
func New(baseURL string, jar http.CookieJar) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
	}
}

// SendMessage stores a message for receiverID and returns it as persisted.
func (c *Client) SendMessage(ctx context.Context, receiverID string, d message.Draft) (message.Message, error) {
	var out message.Message
	err := c.do(ctx, http.MethodPost, "/api/messages/send/"+url.PathEscape(receiverID), d, &out)
	return out, err
}

// GetMessages returns the conversation with userID in creation order.
func (c *Client) GetMessages(ctx context.Context, userID string) ([]message.Message, error) {
	var out []message.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []message.Message{}
	}
	return out, nil
}

// CheckAuth returns the user behind the current session.
func (c *Client) CheckAuth(ctx context.Context) (user.User, error) {
	var out user.User
	err := c.do(ctx, http.MethodGet, "/api/auth/check", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return statusError(res)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func statusError(res *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))

	var body struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(res.StatusCode)
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}

	return &StatusError{StatusCode: res.StatusCode, Message: msg}
}
