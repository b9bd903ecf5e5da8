package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/gauntlet/internal/domain"
	"github.com/ashureev/gauntlet/internal/store"
)

// LifecycleEvent classifies an inbound turn before the pipeline runs.
type LifecycleEvent int

const (
	// EventNew is a first-ever message: a session was just created.
	EventNew LifecycleEvent = iota
	// EventActive continues a live session.
	EventActive
	// EventExpired resumes a session that idled past the timeout. The
	// lifecycle window restarts; level, attempts, won and the message
	// log are preserved.
	EventExpired
)

func (e LifecycleEvent) String() string {
	switch e {
	case EventNew:
		return "new"
	case EventActive:
		return "active"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Classify is the pure lifecycle decision for an existing session.
func Classify(sess *domain.Session, now time.Time, timeout time.Duration) LifecycleEvent {
	if sess == nil {
		return EventNew
	}
	if sess.ExpiredBy(now, timeout) {
		return EventExpired
	}
	return EventActive
}

// Lifecycle loads or creates the session for each inbound turn and
// applies the classification's side effects. Store failures are fatal
// to the turn: no partial session is ever created.
type Lifecycle struct {
	store   store.Store
	timeout time.Duration
}

// NewLifecycle creates a lifecycle manager with the given inactivity
// timeout.
func NewLifecycle(st store.Store, timeout time.Duration) *Lifecycle {
	return &Lifecycle{store: st, timeout: timeout}
}

// Ensure returns the session for an identity along with the lifecycle
// event for this turn. A missing session is created (losing a creation
// race falls back to the winner's row). An expired session gets its
// window restarted before being returned.
func (l *Lifecycle) Ensure(ctx context.Context, id string, now time.Time) (*domain.Session, LifecycleEvent, error) {
	sess, err := l.store.Load(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("load session: %w", err)
	}

	if sess == nil {
		created, err := l.store.Create(ctx, id, now)
		if errors.Is(err, store.ErrSessionExists) {
			// Concurrent create won; observe its row.
			sess, err = l.store.Load(ctx, id)
			if err != nil {
				return nil, 0, fmt.Errorf("reload session after create race: %w", err)
			}
			if sess == nil {
				// The winning row was deleted before the reload, likely
				// by an admin reset. Fail the turn; the next message
				// creates a fresh session.
				return nil, 0, fmt.Errorf("session %s vanished after create race", id)
			}
		} else if err != nil {
			return nil, 0, fmt.Errorf("create session: %w", err)
		} else {
			return created, EventNew, nil
		}
	}

	if Classify(sess, now, l.timeout) == EventExpired {
		if err := l.store.StartNewSession(ctx, id, now); err != nil {
			return nil, 0, fmt.Errorf("restart session window: %w", err)
		}
		sess.SessionStartedAt = now
		sess.LastActiveAt = now
		sess.SessionWarned = false
		return sess, EventExpired, nil
	}

	return sess, EventActive, nil
}
