// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/gauntlet/internal/domain"
)

// ErrSessionExists is returned by Create when a session already exists
// for the identity. Races are expected: the loser should re-Load and
// observe the winner's row.
var ErrSessionExists = errors.New("session already exists")

// Stats summarizes overall game state for the stats endpoint.
type Stats struct {
	TotalSessions     int         `json:"total_sessions"`
	Winners           int         `json:"winners"`
	LevelDistribution map[int]int `json:"level_distribution"`
}

// Store defines the persistence contract for game state. Every
// operation is atomic at the level of a single session.
type Store interface {
	// Load retrieves the session for an identity, or nil if none exists.
	Load(ctx context.Context, identity string) (*domain.Session, error)

	// Create inserts a fresh level-1 session. Returns ErrSessionExists
	// if one is already present; a concurrent create for the same
	// identity never produces two rows.
	Create(ctx context.Context, identity string, now time.Time) (*domain.Session, error)

	// AppendMessage adds one entry to the session's conversation log and
	// bumps last_active_at. When role is user it also increments the
	// attempt counter and clears the session_warned flag.
	AppendMessage(ctx context.Context, identity, role, content string, now time.Time) error

	// Messages returns the session's conversation log in chronological
	// order. limit > 0 restricts the result to the most recent entries.
	Messages(ctx context.Context, identity string, limit int) ([]domain.Message, error)

	// ApplyTurnResult atomically updates level, won, introduced level
	// and last_active_at after a pipeline run.
	ApplyTurnResult(ctx context.Context, identity string, newLevel int, won bool, introducedLevel int, now time.Time) error

	// StartNewSession resets the lifecycle window after an expiry:
	// session_started_at is moved to now and session_warned is cleared.
	// Level, attempts, won and the message log are untouched.
	StartNewSession(ctx context.Context, identity string, now time.Time) error

	// ListForWarning returns identities that have been idle for at least
	// warnAfter but less than timeout, have not been warned in this
	// window, and have not won.
	ListForWarning(ctx context.Context, now time.Time, warnAfter, timeout time.Duration) ([]string, error)

	// MarkWarned sets the session_warned flag, guarded so activity newer
	// than asOf keeps a freshly cleared flag. Idempotent.
	MarkWarned(ctx context.Context, identity string, asOf time.Time) error

	// RecordWinner creates the winner row exactly once; redundant calls
	// are no-ops and the originally assigned rank is preserved.
	RecordWinner(ctx context.Context, identity string, totalAttempts, elapsedSeconds int, now time.Time) error

	// SetPrizeChoice attaches the winner's phone preference for the draw.
	SetPrizeChoice(ctx context.Context, identity, choice string) error

	// Winners returns all winner records ordered by rank.
	Winners(ctx context.Context) ([]domain.Winner, error)

	// Stats returns aggregate counters for the stats endpoint.
	Stats(ctx context.Context) (*Stats, error)

	// ResetAll deletes the session, its messages and any winner record.
	ResetAll(ctx context.Context, identity string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
