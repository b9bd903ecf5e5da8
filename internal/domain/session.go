// Package domain contains core domain types for the Gauntlet game.
package domain

import (
	"time"
)

// Session holds durable per-identity game state. One session exists per
// participant identity for the lifetime of their run; it is mutated on
// every turn and deleted only by an explicit admin reset.
type Session struct {
	Identity         string    `json:"identity"`
	Level            int       `json:"level"`
	Attempts         int       `json:"attempts"`
	Won              bool      `json:"won"`
	IntroducedLevel  int       `json:"introduced_level"`
	CreatedAt        time.Time `json:"created_at"`
	LastActiveAt     time.Time `json:"last_active_at"`
	SessionStartedAt time.Time `json:"session_started_at"`
	SessionWarned    bool      `json:"session_warned"`
}

// IdleFor returns how long the session has been inactive as of now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActiveAt)
}

// ExpiredBy returns true if the session has been inactive for at least
// the given timeout as of now.
func (s *Session) ExpiredBy(now time.Time, timeout time.Duration) bool {
	return s.IdleFor(now) >= timeout
}

// NeedsIntro returns true if the current level has not yet been
// introduced to the participant.
func (s *Session) NeedsIntro() bool {
	return s.IntroducedLevel < s.Level
}

// Elapsed returns the wall-clock time between session creation and now.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
