package tasks

import "sync"

// pairLocks is a keyed advisory lock over sync pair IDs.
//
// Reconciliation must never run twice concurrently for the same pair, or the
// two passes can interleave their add/remove mutations against the target
// playlist and lose updates. TryLock is non-blocking: an overlapping trigger
// aborts cleanly instead of queueing behind the running pass.
type pairLocks struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newPairLocks() *pairLocks {
	return &pairLocks{active: make(map[string]struct{})}
}

// TryLock claims the lock for pairID, reporting false when it is already held.
func (l *pairLocks) TryLock(pairID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.active[pairID]; held {
		return false
	}
	l.active[pairID] = struct{}{}
	return true
}

// Unlock releases the lock for pairID.
func (l *pairLocks) Unlock(pairID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, pairID)
}
