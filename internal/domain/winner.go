package domain

import (
	"time"
)

// Winner records a completed run. Created exactly once per session when
// the final level is beaten; Rank is assigned at creation and never
// recomputed. PrizeChoice is attached later when the winner picks a
// phone for the draw.
type Winner struct {
	Identity       string    `json:"identity"`
	CompletedAt    time.Time `json:"completed_at"`
	TotalAttempts  int       `json:"total_attempts"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Rank           int       `json:"rank"`
	PrizeChoice    string    `json:"prize_choice,omitempty"`
}
