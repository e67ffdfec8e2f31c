package ws

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests to websocket connections and registers
// them with the manager. An optional run_id query parameter restricts the
// subscription to one run's events.
func Handler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter *uuid.UUID
		if raw := r.URL.Query().Get("run_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid run_id", http.StatusBadRequest)
				return
			}
			filter = &id
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[ws] upgrade failed: %v", err)
			return
		}

		sub := m.Subscribe(conn, filter)
		log.Printf("[ws] subscriber connected (total %d)", m.Count())

		// Clients do not send application messages; the read loop exists
		// to notice disconnects and honor control frames.
		go func() {
			defer m.Unsubscribe(sub)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
