package notify

import (
	"log"
	"sync"

	"askrelay/pkg/types"
)

// SessionCreatedEventType labels creation notices on the wire
const SessionCreatedEventType = "ask_session_created"

// sessionCreatedMessage is the wire envelope pushed to UI clients
type sessionCreatedMessage struct {
	Type    string                    `json:"type"`
	Payload types.SessionCreatedEvent `json:"payload"`
}

// Registry tracks connected UI clients and fans creation notices out to
// them. It implements interfaces.Notifier; an empty registry is fine — a
// session stays valid even when nobody was listening.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
	}
}

// Register adds a UI connection
func (r *Registry) Register(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ID()] = conn

	return nil
}

// Unregister removes a connection; idempotent and safe for concurrent use.
// Only the exact registered instance is removed.
func (r *Registry) Unregister(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if registered, exists := r.connections[conn.ID()]; exists && registered == conn {
		delete(r.connections, conn.ID())
	}
}

// SessionCreated broadcasts one creation notice to every connected UI
// client. Delivery is best-effort; per-connection failures are logged and
// never propagate to the socket handler.
func (r *Registry) SessionCreated(event types.SessionCreatedEvent) error {
	r.mu.RLock()
	connections := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		connections = append(connections, conn)
	}
	r.mu.RUnlock()

	message := sessionCreatedMessage{
		Type:    SessionCreatedEventType,
		Payload: event,
	}

	for _, conn := range connections {
		if err := conn.WriteJSON(message); err != nil {
			log.Printf("Failed to notify UI connection %s: %v", conn.ID(), err)
		}
	}

	return nil
}

// GetStats returns connection counts for health reporting
func (r *Registry) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"ui_connections": len(r.connections),
	}
}
