package domain

import (
	"time"
)

// Message roles. The log only ever contains these two.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a session's append-only conversation log.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Level     int       `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}
