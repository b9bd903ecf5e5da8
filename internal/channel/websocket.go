package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/gauntlet/internal/identity"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// WebSocketHandler upgrades chat connections and feeds inbound messages
// into the game core.
type WebSocketHandler struct {
	hub           *Hub
	handler       Handler
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new chat WebSocket handler.
func NewWebSocketHandler(hub *Hub, handler Handler, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		handler:       handler,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// inboundMessage is the wire format for messages read from clients.
type inboundMessage struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ActionID string `json:"action_id,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == "" {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "identity", id)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "identity", id)
		}
	}()

	connID := uuid.NewString()
	h.hub.Register(id, connID, ws)
	defer h.hub.Unregister(id, connID, ws)

	h.readLoop(r.Context(), ws, id)
	slog.Info("Chat connection ended", "identity", id)
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, id string) {
	for {
		_, raw, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "identity", id)
			} else {
				slog.Warn("WebSocket read error", "error", err, "identity", id)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Debug("Ignoring malformed chat frame", "identity", id)
			continue
		}

		switch msg.Type {
		case "ping":
			pong, _ := json.Marshal(map[string]string{"type": "pong"})
			if err := ws.Write(ctx, websocket.MessageText, pong); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		case "message", "action":
			in := Inbound{
				Identity:  id,
				Text:      msg.Text,
				ActionID:  msg.ActionID,
				MessageID: uuid.NewString(),
			}
			// Handled synchronously so a single connection cannot
			// pipeline turns out of order; the game core serializes
			// across connections for the same identity anyway.
			if err := h.handler.HandleInbound(ctx, in); err != nil {
				slog.Error("Turn handling failed", "identity", id, "error", err)
			}
		default:
			slog.Debug("Unknown chat frame type", "type", msg.Type, "identity", id)
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
