/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
upgrading the HTTP connection to WebSocket, and handing the connection to the package
engine. Authentication happens inside the protocol, not at the HTTP layer: a fresh
connection starts unauthenticated and logs in with a GUEST_LOGIN, MEMBER_LOGIN, or
REGISTER package.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"neochat/internal/pkg/errs"
	"neochat/internal/pkg/limiter"
	"neochat/internal/pkg/logx"
	"neochat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.New(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := deps.Engine.Connect(conn)

		go client.WritePump()

		logx.Info("WebSocket connection established", "client_id", client.ID)

		client.ReadPump()
	}
}
