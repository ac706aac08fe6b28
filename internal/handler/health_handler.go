package handler

import (
	"net/http"
	"time"

	"chatify/internal/pkg/resp"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status      string `json:"status"`
	OnlineUsers int    `json:"onlineUsers"`
	Timestamp   string `json:"timestamp"`
}

// OnlineUsersList is the body of GET /online-users.
type OnlineUsersList struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// HandleHealth reports liveness and the number of online users.
func HandleHealth(presence PresenceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondOK(w, r, HealthStatus{
			Status:      "ok",
			OnlineUsers: presence.OnlineCount(),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// HandleOnlineUsers lists the online user ids. Mount it behind RequireInternalKey.
func HandleOnlineUsers(presence PresenceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users := presence.OnlineUsers()
		resp.RespondOK(w, r, OnlineUsersList{Count: len(users), Users: users})
	}
}
