/*
Package notifier is the backend side of the relay notify channel.

After the backend has stored a message it calls Notify so the relay can push the message
to the recipient's live connection. The message is already durable at that point, so
callers log a failed notification and move on.
*/
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chatify/internal/configs"
	"chatify/internal/pkg/logx"
)

// InternalKeyHeader must match the header the relay checks.
const InternalKeyHeader = "X-Internal-API-Key"

const defaultTimeout = 5 * time.Second

// Notifier posts freshly stored messages to the relay.
type Notifier struct {
	relayURL    string
	internalKey string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// Option customizes a Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the default client (5s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		n.httpClient = c
	}
}

// New returns a Notifier for cfg. A Notifier with an empty relay URL is valid; it skips
// every call.
func New(cfg *configs.NotifierConfig, opts ...Option) *Notifier {
	n := &Notifier{
		relayURL:    cfg.RelayURL,
		internalKey: cfg.InternalAPIKey,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logx.Component("notifier"),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.relayURL == "" {
		n.logger.Warn().Msg("SOCKET_SERVER_URL is not set; real-time notifications are disabled.")
	}

	return n
}

type notifyRequest struct {
	RecipientID string `json:"recipientId"`
	Message     any    `json:"message"`
}

type notifyResponse struct {
	Success   bool `json:"success"`
	Delivered bool `json:"delivered"`
}

// StatusError reports a non-2xx answer from the relay.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay answered %d: %s", e.StatusCode, e.Body)
}

// Notify asks the relay to push message to recipientID. delivered is false when the
// recipient is offline or notifications are disabled.
func (n *Notifier) Notify(ctx context.Context, recipientID string, message any) (delivered bool, err error) {
	if n.relayURL == "" {
		n.logger.Debug().Str("recipient_id", recipientID).Msg("Notification skipped, relay URL not configured.")
		return false, nil
	}

	body, err := json.Marshal(notifyRequest{RecipientID: recipientID, Message: message})
	if err != nil {
		return false, fmt.Errorf("encode notify body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.relayURL+"/notify", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(InternalKeyHeader, n.internalKey)

	res, err := n.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("notify relay: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("read notify response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return false, &StatusError{StatusCode: res.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	var out notifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, fmt.Errorf("decode notify response: %w", err)
	}

	return out.Delivered, nil
}

// NotifyAsync runs Notify in the background and logs the outcome. The call gets its own
// timeout so it outlives the request that stored the message.
func (n *Notifier) NotifyAsync(recipientID string, message any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()

		delivered, err := n.Notify(ctx, recipientID, message)
		if err != nil {
			n.logger.Error().Err(err).Str("recipient_id", recipientID).Msg("Failed to notify relay.")
			return
		}

		n.logger.Debug().Str("recipient_id", recipientID).Bool("delivered", delivered).Msg("Relay notified.")
	}()
}
