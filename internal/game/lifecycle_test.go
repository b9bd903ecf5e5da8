package game

import (
	"context"
	"testing"
	"time"

	"github.com/ashureev/gauntlet/internal/domain"
	"github.com/ashureev/gauntlet/internal/store"
)

const testTimeout = 3 * time.Minute

func TestClassify(t *testing.T) {
	now := time.Now()

	if got := Classify(nil, now, testTimeout); got != EventNew {
		t.Errorf("Expected new for nil session, got %v", got)
	}

	active := &domain.Session{LastActiveAt: now.Add(-time.Minute)}
	if got := Classify(active, now, testTimeout); got != EventActive {
		t.Errorf("Expected active, got %v", got)
	}

	expired := &domain.Session{LastActiveAt: now.Add(-10 * time.Minute)}
	if got := Classify(expired, now, testTimeout); got != EventExpired {
		t.Errorf("Expected expired, got %v", got)
	}

	boundary := &domain.Session{LastActiveAt: now.Add(-testTimeout)}
	if got := Classify(boundary, now, testTimeout); got != EventExpired {
		t.Errorf("Expected expiry exactly at the timeout, got %v", got)
	}
}

func TestLifecycle_EnsureCreates(t *testing.T) {
	st := newMemStore()
	lc := NewLifecycle(st, testTimeout)
	now := time.Now()

	sess, event, err := lc.Ensure(context.Background(), "anon_1", now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if event != EventNew {
		t.Errorf("Expected new event, got %v", event)
	}
	if sess.Level != 1 || sess.Attempts != 0 {
		t.Errorf("Expected fresh session, got %+v", sess)
	}
}

func TestLifecycle_EnsureActive(t *testing.T) {
	st := newMemStore()
	now := time.Now()
	st.seed(&domain.Session{
		Identity: "anon_1", Level: 3, Attempts: 7,
		LastActiveAt: now.Add(-time.Minute), SessionStartedAt: now.Add(-5 * time.Minute),
	})

	lc := NewLifecycle(st, testTimeout)
	sess, event, err := lc.Ensure(context.Background(), "anon_1", now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if event != EventActive {
		t.Errorf("Expected active event, got %v", event)
	}
	if sess.Level != 3 || sess.Attempts != 7 {
		t.Errorf("Expected state preserved, got %+v", sess)
	}
}

func TestLifecycle_EnsureExpiredRestartsWindow(t *testing.T) {
	st := newMemStore()
	now := time.Now()
	st.seed(&domain.Session{
		Identity: "anon_1", Level: 4, Attempts: 20, SessionWarned: true,
		LastActiveAt: now.Add(-10 * time.Minute), SessionStartedAt: now.Add(-time.Hour),
	})

	lc := NewLifecycle(st, testTimeout)
	sess, event, err := lc.Ensure(context.Background(), "anon_1", now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if event != EventExpired {
		t.Errorf("Expected expired event, got %v", event)
	}
	if sess.Level != 4 || sess.Attempts != 20 {
		t.Errorf("Expected progress preserved across expiry, got %+v", sess)
	}
	if !sess.SessionStartedAt.Equal(now) {
		t.Errorf("Expected restarted window, got %v", sess.SessionStartedAt)
	}
	if sess.SessionWarned {
		t.Error("Expected warned flag cleared on restart")
	}

	stored, _ := st.Load(context.Background(), "anon_1")
	if !stored.SessionStartedAt.Equal(now) {
		t.Error("Expected restart persisted")
	}
}

// raceStore simulates losing a creation race: the first Load misses,
// Create reports a conflict, and the reload observes the winner's row.
type raceStore struct {
	*memStore
	raced bool
}

func (r *raceStore) Load(ctx context.Context, identity string) (*domain.Session, error) {
	if !r.raced {
		return nil, nil
	}
	return r.memStore.Load(ctx, identity)
}

func (r *raceStore) Create(_ context.Context, identity string, now time.Time) (*domain.Session, error) {
	r.raced = true
	r.seed(&domain.Session{
		Identity: identity, Level: 1, Attempts: 1,
		CreatedAt: now, LastActiveAt: now, SessionStartedAt: now,
	})
	return nil, store.ErrSessionExists
}

func TestLifecycle_EnsureLosesCreateRace(t *testing.T) {
	st := &raceStore{memStore: newMemStore()}
	lc := NewLifecycle(st, testTimeout)
	now := time.Now()

	sess, event, err := lc.Ensure(context.Background(), "anon_1", now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if event != EventActive {
		t.Errorf("Expected active event for the winner's row, got %v", event)
	}
	if sess.Attempts != 1 {
		t.Errorf("Expected winner's row observed, got %+v", sess)
	}
}

// vanishStore simulates a create race whose winning row is deleted
// before the reload, as an admin reset can do.
type vanishStore struct {
	*memStore
}

func (v *vanishStore) Load(context.Context, string) (*domain.Session, error) {
	return nil, nil
}

func (v *vanishStore) Create(context.Context, string, time.Time) (*domain.Session, error) {
	return nil, store.ErrSessionExists
}

func TestLifecycle_EnsureCreateRaceRowVanished(t *testing.T) {
	st := &vanishStore{memStore: newMemStore()}
	lc := NewLifecycle(st, testTimeout)

	sess, _, err := lc.Ensure(context.Background(), "anon_1", time.Now())
	if err == nil {
		t.Fatal("Expected error when the raced row is gone")
	}
	if sess != nil {
		t.Errorf("Expected no session, got %+v", sess)
	}
}
