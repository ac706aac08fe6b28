/*
Package handler provides the internal notify endpoint the backend calls after persisting a message.

The endpoint trusts only the shared internal key. It never touches the presence table
before the key has been verified.
*/
package handler

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"chatify/internal/pkg/errs"
	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/metrics"
	"chatify/internal/pkg/req"
	"chatify/internal/pkg/resp"
)

// InternalKeyHeader carries the shared key on backend-to-relay calls.
const InternalKeyHeader = "X-Internal-API-Key"

// NotifyInput is the body of a notify call. ReceiverID is the older name of RecipientID.
type NotifyInput struct {
	RecipientID string          `json:"recipientId"`
	ReceiverID  string          `json:"receiverId"`
	Message     json.RawMessage `json:"message"`
}

// NotifyResult is the body of a successful notify call.
type NotifyResult struct {
	Success   bool `json:"success"`
	Delivered bool `json:"delivered"`
}

func (in NotifyInput) recipient() string {
	if in.RecipientID != "" {
		return in.RecipientID
	}
	return in.ReceiverID
}

// HandleNotify creates the handler for POST /notify.
func HandleNotify(internalKey string, deliverer Deliverer, m *metrics.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if internalKey == "" {
			logx.Error(nil, "Notify rejected: internal API key is not configured")
			resp.RespondError(w, r, errs.NewError(errs.ErrServerConfig))
			return
		}

		if !hasInternalKey(r, internalKey) {
			logx.Warn("Notify rejected: bad internal API key.", "remote_ip", logx.AnonymizeIP(r.RemoteAddr))
			m.Notifications.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input NotifyInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			m.Notifications.WithLabelValues(metrics.OutcomeBadRequest).Inc()
			resp.RespondError(w, r, customErr)
			return
		}

		recipientID := input.recipient()
		message := bytes.TrimSpace(input.Message)

		if recipientID == "" || len(message) == 0 || bytes.Equal(message, []byte("null")) {
			m.Notifications.WithLabelValues(metrics.OutcomeBadRequest).Inc()
			resp.RespondError(w, r, errs.NewError(errs.ErrNotifyFieldsMissing))
			return
		}

		if message[0] != '{' {
			m.Notifications.WithLabelValues(metrics.OutcomeBadRequest).Inc()
			resp.RespondError(w, r, errs.NewError(errs.ErrNotifyMessageInvalid))
			return
		}

		delivered, err := deliverer.Deliver(recipientID, json.RawMessage(message))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		outcome := metrics.OutcomeOffline
		if delivered {
			outcome = metrics.OutcomeDelivered
		}
		m.Notifications.WithLabelValues(outcome).Inc()

		logx.Debug("Notify handled", "recipient_id", recipientID, "delivered", delivered)

		resp.RespondOK(w, r, NotifyResult{Success: true, Delivered: delivered})
	}
}

// RequireInternalKey rejects requests that do not carry the internal key.
func RequireInternalKey(internalKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if internalKey == "" || !hasInternalKey(r, internalKey) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasInternalKey(r *http.Request, internalKey string) bool {
	got := r.Header.Get(InternalKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(internalKey)) == 1
}
