package services

import (
	"sync"
	"time"
)

// identityLocks serializes the read-candidates / merge / write-back
// sequence per player identity. Acquisition is bounded: a caller that
// cannot get the lock in time fails with a retryable error instead of
// blocking a worker indefinitely.
type identityLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{slots: make(map[string]chan struct{})}
}

func (l *identityLocks) acquire(key string, timeout time.Duration) bool {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

func (l *identityLocks) release(key string) {
	l.mu.Lock()
	slot := l.slots[key]
	l.mu.Unlock()

	if slot != nil {
		<-slot
	}
}
