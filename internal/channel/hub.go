package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Hub tracks active WebSocket connections per identity and implements
// Deliverer by fanning a message out to every open connection for that
// identity (a participant may have several tabs).
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[string]*websocket.Conn
}

// NewHub creates an empty connection hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[string]*websocket.Conn),
	}
}

// Register adds a connection for an identity under a connection id.
func (h *Hub) Register(identity, connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[identity]; !ok {
		h.conns[identity] = make(map[string]*websocket.Conn)
	}
	h.conns[identity][connID] = conn
	slog.Info("Chat connection registered", "identity", identity, "conn_id", connID)
}

// Unregister removes a connection if it is still the registered one.
func (h *Hub) Unregister(identity, connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[identity]; ok {
		if current, exists := conns[connID]; exists && current == conn {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(h.conns, identity)
			}
			slog.Info("Chat connection unregistered", "identity", identity, "conn_id", connID)
		}
	}
}

// Connected reports whether the identity has at least one open
// connection.
func (h *Hub) Connected(identity string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[identity]) > 0
}

// outboundMessage is the wire format for messages pushed to clients.
type outboundMessage struct {
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	Actions []Action `json:"actions,omitempty"`
}

// Deliver sends the text and quick-actions to every open connection for
// the identity. Delivery to a disconnected identity is not an error;
// the message is simply dropped (the session state already reflects it).
func (h *Hub) Deliver(ctx context.Context, identity, text string, actions []Action) error {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[identity]))
	for _, c := range h.conns[identity] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		slog.Debug("No active connection for delivery", "identity", identity)
		return nil
	}

	payload, err := json.Marshal(outboundMessage{Type: "message", Text: text, Actions: actions})
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}

	var lastErr error
	for _, conn := range conns {
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			slog.Warn("Failed to deliver message", "identity", identity, "error", err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("deliver to %s: %w", identity, lastErr)
	}
	return nil
}
