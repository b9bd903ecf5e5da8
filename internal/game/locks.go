package game

import (
	"sync"
)

// identityLocks hands out one mutex per identity so that at most one
// pipeline execution is in flight for any participant. Locks are kept
// for the process lifetime; the population is bounded by the number of
// participants, which is small for this workload.
type identityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *identityLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}
