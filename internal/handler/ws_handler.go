/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains HandleWebSocket, which checks the origin, authenticates the session
cookie, upgrades the connection and hands it to the gateway. Rejected handshakes get an
HTTP error with a reason before any upgrade happens.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"chatify/internal/app/relay"
	"chatify/internal/pkg/errs"
	"chatify/internal/pkg/limiter"
	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/resp"
)

// Handshake results recorded in metrics.
const (
	handshakeOK             = "ok"
	handshakeOriginRejected = "origin_not_allowed"
	handshakeUpgradeFailed  = "upgrade_failed"
	handshakeShuttingDown   = "shutting_down"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, allowOrigin func(string) bool, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteIP := logx.AnonymizeIP(limiter.ClientIP(r))

		if origin := r.Header.Get("Origin"); !allowOrigin(origin) {
			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin, "remote_ip", remoteIP)
			deps.Metrics.Handshakes.WithLabelValues(handshakeOriginRejected).Inc()
			resp.RespondError(w, r, errs.NewError(errs.ErrOriginNotAllowed))
			return
		}

		identity, err := deps.Codec.Decode(r.Header.Get("Cookie"))
		if err != nil {
			customErr := errs.FromSession(err)
			logx.Warn("WebSocket connection rejected.", "reason", customErr.Message, "error", err.Error(), "remote_ip", remoteIP)
			deps.Metrics.Handshakes.WithLabelValues(handshakeResult(customErr.Code)).Inc()
			resp.RespondError(w, r, customErr)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "user_id", identity.ID)
			deps.Metrics.Handshakes.WithLabelValues(handshakeUpgradeFailed).Inc()
			return
		}

		conn := relay.NewConn(deps.Gateway, ws, identity)

		go conn.WritePump()

		if !deps.Gateway.Connect(conn) {
			deps.Metrics.Handshakes.WithLabelValues(handshakeShuttingDown).Inc()
			return
		}

		deps.Metrics.Handshakes.WithLabelValues(handshakeOK).Inc()
		logx.Info("WebSocket connection established", "user_id", identity.ID, "conn_id", conn.ID, "cookie", identity.Cookie)

		conn.ReadPump()
	}
}

func handshakeResult(code int) string {
	switch code {
	case errs.ErrNoSession:
		return "no_session"
	case errs.ErrNoSessionToken:
		return "no_session_token"
	default:
		return "invalid_session"
	}
}
