package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/gauntlet/internal/channel"
	"github.com/ashureev/gauntlet/internal/domain"
	"github.com/ashureev/gauntlet/internal/reasoner"
	"github.com/ashureev/gauntlet/internal/store"
)

// memStore is an in-memory store.Store for tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	messages map[string][]domain.Message
	winners  []domain.Winner
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string]*domain.Session),
		messages: make(map[string][]domain.Message),
	}
}

func (m *memStore) seed(sess *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sess
	m.sessions[sess.Identity] = &cp
}

func (m *memStore) Load(_ context.Context, identity string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[identity]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, identity string, now time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[identity]; ok {
		return nil, store.ErrSessionExists
	}
	sess := &domain.Session{
		Identity:         identity,
		Level:            1,
		CreatedAt:        now,
		LastActiveAt:     now,
		SessionStartedAt: now,
	}
	m.sessions[identity] = sess
	cp := *sess
	return &cp, nil
}

func (m *memStore) AppendMessage(_ context.Context, identity, role, content string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[identity]
	if !ok {
		return fmt.Errorf("no session for %s", identity)
	}
	m.messages[identity] = append(m.messages[identity], domain.Message{
		Role: role, Content: content, Level: sess.Level, Timestamp: now,
	})
	sess.LastActiveAt = now
	if role == domain.RoleUser {
		sess.Attempts++
		sess.SessionWarned = false
	}
	return nil
}

func (m *memStore) Messages(_ context.Context, identity string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[identity]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *memStore) ApplyTurnResult(_ context.Context, identity string, newLevel int, won bool, introducedLevel int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[identity]
	if !ok {
		return fmt.Errorf("no session for %s", identity)
	}
	sess.Level = newLevel
	sess.Won = won
	sess.IntroducedLevel = introducedLevel
	sess.LastActiveAt = now
	return nil
}

func (m *memStore) StartNewSession(_ context.Context, identity string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[identity]
	if !ok {
		return fmt.Errorf("no session for %s", identity)
	}
	sess.SessionStartedAt = now
	sess.LastActiveAt = now
	sess.SessionWarned = false
	return nil
}

func (m *memStore) ListForWarning(_ context.Context, now time.Time, warnAfter, timeout time.Duration) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, sess := range m.sessions {
		idle := now.Sub(sess.LastActiveAt)
		if idle >= warnAfter && idle < timeout && !sess.SessionWarned && !sess.Won {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) MarkWarned(_ context.Context, identity string, asOf time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[identity]; ok && !sess.LastActiveAt.After(asOf) {
		sess.SessionWarned = true
	}
	return nil
}

func (m *memStore) RecordWinner(_ context.Context, identity string, totalAttempts, elapsedSeconds int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.winners {
		if w.Identity == identity {
			return nil
		}
	}
	m.winners = append(m.winners, domain.Winner{
		Identity:       identity,
		CompletedAt:    now,
		TotalAttempts:  totalAttempts,
		ElapsedSeconds: elapsedSeconds,
		Rank:           len(m.winners) + 1,
	})
	return nil
}

func (m *memStore) SetPrizeChoice(_ context.Context, identity, choice string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.winners {
		if m.winners[i].Identity == identity {
			m.winners[i].PrizeChoice = choice
			return nil
		}
	}
	return fmt.Errorf("no winner record for %s", identity)
}

func (m *memStore) Winners(_ context.Context) ([]domain.Winner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Winner, len(m.winners))
	copy(out, m.winners)
	return out, nil
}

func (m *memStore) Stats(_ context.Context) (*store.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &store.Stats{LevelDistribution: make(map[int]int)}
	for _, sess := range m.sessions {
		stats.TotalSessions++
		if sess.Won {
			stats.Winners++
		}
		stats.LevelDistribution[sess.Level]++
	}
	return stats, nil
}

func (m *memStore) ResetAll(_ context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, identity)
	delete(m.messages, identity)
	for i, w := range m.winners {
		if w.Identity == identity {
			m.winners = append(m.winners[:i], m.winners[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

// fakeReasoner scripts reasoner.Service behavior for tests.
type fakeReasoner struct {
	mu            sync.Mutex
	generateCalls int
	judgeCalls    int

	generateFn func(call int) (string, error)
	judgeFn    func(call int) (reasoner.Verdict, error)
}

func (f *fakeReasoner) Generate(context.Context, string, []domain.Message) (string, error) {
	f.mu.Lock()
	f.generateCalls++
	call := f.generateCalls
	fn := f.generateFn
	f.mu.Unlock()
	if fn == nil {
		return "The guardian eyes you suspiciously.", nil
	}
	return fn(call)
}

func (f *fakeReasoner) Judge(context.Context, string) (reasoner.Verdict, error) {
	f.mu.Lock()
	f.judgeCalls++
	call := f.judgeCalls
	fn := f.judgeFn
	f.mu.Unlock()
	if fn == nil {
		return reasoner.Verdict{}, nil
	}
	return fn(call)
}

func (f *fakeReasoner) Close() {}

func (f *fakeReasoner) calls() (generate, judge int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls, f.judgeCalls
}

// delivered is one captured outbound message.
type delivered struct {
	identity string
	text     string
	actions  []channel.Action
}

// captureDeliverer records everything sent through it.
type captureDeliverer struct {
	mu   sync.Mutex
	sent []delivered
	err  error
}

func (d *captureDeliverer) Deliver(_ context.Context, identity, text string, actions []channel.Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, delivered{identity: identity, text: text, actions: actions})
	return nil
}

func (d *captureDeliverer) all() []delivered {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]delivered, len(d.sent))
	copy(out, d.sent)
	return out
}

func (d *captureDeliverer) last() (delivered, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return delivered{}, false
	}
	return d.sent[len(d.sent)-1], true
}
