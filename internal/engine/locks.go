package engine

import "sync"

// lockTable enforces at most one in-flight operation per logical id.
// Acquisition never blocks; contenders observe busy instead of queueing.
type lockTable struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newLockTable() *lockTable {
	return &lockTable{held: make(map[string]struct{})}
}

func (t *lockTable) acquire(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.held[id]; ok {
		return false
	}
	t.held[id] = struct{}{}
	return true
}

func (t *lockTable) release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, id)
}
