package domain

import (
	"testing"
	"time"
)

func TestSession_ExpiredBy(t *testing.T) {
	now := time.Now()
	timeout := 3 * time.Minute

	fresh := &Session{LastActiveAt: now.Add(-time.Minute)}
	if fresh.ExpiredBy(now, timeout) {
		t.Error("Expected active session not expired")
	}

	idle := &Session{LastActiveAt: now.Add(-5 * time.Minute)}
	if !idle.ExpiredBy(now, timeout) {
		t.Error("Expected idle session expired")
	}

	boundary := &Session{LastActiveAt: now.Add(-timeout)}
	if !boundary.ExpiredBy(now, timeout) {
		t.Error("Expected expiry exactly at the timeout")
	}
}

func TestSession_NeedsIntro(t *testing.T) {
	if !(&Session{Level: 2, IntroducedLevel: 1}).NeedsIntro() {
		t.Error("Expected intro needed when level outruns introductions")
	}
	if (&Session{Level: 2, IntroducedLevel: 2}).NeedsIntro() {
		t.Error("Expected no intro when already introduced")
	}
	if !(&Session{Level: 1, IntroducedLevel: 0}).NeedsIntro() {
		t.Error("Expected intro needed for a fresh session")
	}
}

func TestSession_Elapsed(t *testing.T) {
	created := time.Now()
	s := &Session{CreatedAt: created}
	if got := s.Elapsed(created.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("Expected 90s elapsed, got %v", got)
	}
}
