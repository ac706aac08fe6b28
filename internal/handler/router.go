/*
Package handler provides the HTTP handlers and routing setup for the Chatify relay.

This file defines the main Router, applying middleware like logging, CORS and IP-based
rate limiting before delegating to the WebSocket, notify and introspection handlers.
General traffic and the notify path use separate limiters.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"chatify/internal/pkg/logx"
)

// Router sets up the relay routing table.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowOrigin := originPolicy(deps.Config.IsDevelopment(), deps.Config.AllowedOrigins)

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return allowOrigin(r.Header.Get("Origin"))
		},
	}

	corsAllowedOrigins := deps.Config.AllowedOrigins
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", InternalKeyHeader},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	internalOnly := RequireInternalKey(deps.Config.InternalAPIKey)

	r.Group(func(general chi.Router) {
		general.Use(deps.GeneralLimiter.Middleware)

		general.Get("/health", HandleHealth(deps.Gateway))
		general.With(internalOnly).Get("/online-users", HandleOnlineUsers(deps.Gateway))
		general.With(internalOnly).Handle("/metrics", deps.Metrics.Handler())
		general.Get("/socket", HandleWebSocket(wsUpgrader, allowOrigin, deps))
	})

	r.With(deps.NotifyLimiter.Middleware).
		Post("/notify", HandleNotify(deps.Config.InternalAPIKey, deps.Gateway, deps.Metrics))

	return r
}

// originPolicy returns the browser-origin check for WebSocket handshakes. Requests without
// an Origin header come from non-browser clients and are allowed; the session cookie still
// gates them.
func originPolicy(isDevelopment bool, allowed []string) func(origin string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}

	return func(origin string) bool {
		if isDevelopment || origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
