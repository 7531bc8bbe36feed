package api

import (
	"net/http"

	"warden/internal/notify"
)

// handleWebsocket upgrades the connection and subscribes it to the event
// stream. The socket is one-way: inbound frames are discarded, and the read
// loop exists only to notice the close.
func (h *Handler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.principal(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	id := h.registry.Add(notify.NewWebsocketClient(conn))
	h.logger.Debug("websocket connected", "user_id", userID, "client_id", id)

	go func() {
		defer h.registry.Remove(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.logger.Debug("websocket closed", "user_id", userID, "client_id", id)
				return
			}
		}
	}()
}
