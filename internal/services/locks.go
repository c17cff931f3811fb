package services

import (
	"sync"
	"time"
)

// Clock returns the current instant; tests pin it.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// UserLocks hands out one mutex per key. Keys are user ids for snapshot
// mutations and user/task pairs for TickTick pushes. Every mutation of a
// user's task snapshot holds that user's lock for the read-modify-write.
// Entries are dropped once no goroutine holds or waits for them.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*keyLock)}
}

func (l *UserLocks) Lock(key string) func() {
	l.mu.Lock()
	k, ok := l.locks[key]
	if !ok {
		k = &keyLock{}
		l.locks[key] = k
	}
	k.refs++
	l.mu.Unlock()

	k.Lock()
	return func() {
		k.Unlock()
		l.mu.Lock()
		k.refs--
		if k.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
