package notify

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket upgrader for local UI clients
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The listener binds to loopback; all local origins are accepted
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler upgrades UI clients to WebSocket and keeps them registered for
// creation notices until they disconnect
type Handler struct {
	registry *Registry
}

// NewHandler creates a WebSocket handler over the registry
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// HandleWebSocket handles a UI client connection request
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn)
	if err := h.registry.Register(wsConn); err != nil {
		log.Printf("Failed to register UI connection: %v", err)
		_ = wsConn.Close()
		return
	}

	go h.handleConnection(wsConn)
}

// handleConnection monitors the connection until the client disconnects.
// UI clients only receive events; inbound frames are drained and dropped.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.registry.Unregister(conn)
		_ = conn.Close()
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("UI WebSocket error: %v", err)
			}
			return
		}
	}
}
