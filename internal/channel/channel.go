// Package channel provides the chat delivery channel: the contract the
// game core uses to reach participants, plus a WebSocket implementation.
package channel

import (
	"context"
)

// Action is a named quick-action offered alongside a message (rendered
// as buttons by channels that support them).
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Inbound is one message arriving from a participant.
type Inbound struct {
	Identity  string
	Text      string
	ActionID  string
	MessageID string
}

// Deliverer sends a rendered outcome to a participant. Implementations
// must be safe for concurrent use across identities.
type Deliverer interface {
	Deliver(ctx context.Context, identity, text string, actions []Action) error
}

// Handler is the game core's entry point for inbound messages.
type Handler interface {
	HandleInbound(ctx context.Context, in Inbound) error
}
