package registry

import "sync"

// TokenLock is the named critical section serializing all index-affecting
// token mutations and re-index on one replica. Reads never take it.
const TokenLock = "TOKEN_LOCK"

// lockTable is a process-wide map of named locks, created lazily under a
// guard. The table itself is process-local; inter-replica races are
// handled by the optimistic version hashes.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// withLock runs fn while holding the named lock. The lock is released on
// every exit path, including panics inside fn.
func (t *lockTable) withLock(name string, fn func() error) error {
	t.mu.Lock()
	l, ok := t.locks[name]
	if !ok {
		l = &sync.Mutex{}
		t.locks[name] = l
	}
	t.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}
