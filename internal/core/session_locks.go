package core

import "sync"

// sessionLocks serializes chat calls per session id so two browser
// tabs racing on one conversation cannot interleave their turns.
// Entries are refcounted and removed once no call holds them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(sessionID string) *sessionLock {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return entry
}

func (l *sessionLocks) unlock(sessionID string, entry *sessionLock) {
	entry.mu.Unlock()

	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, sessionID)
	}
	l.mu.Unlock()
}
