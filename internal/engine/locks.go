package engine

import "sync"

// userLocks is a keyed mutex table. Entries are dropped once nobody holds or
// waits on them, so the table does not grow with the number of users seen.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[string]*userLock)}
}

// tryLock acquires the user's lock without blocking.
func (l *userLocks) tryLock(user string) (unlock func(), ok bool) {
	l.mu.Lock()
	e, found := l.m[user]
	if !found {
		e = &userLock{}
		l.m[user] = e
	}
	e.refs++
	l.mu.Unlock()

	if !e.mu.TryLock() {
		l.release(user, e)
		return nil, false
	}
	return func() {
		e.mu.Unlock()
		l.release(user, e)
	}, true
}

func (l *userLocks) release(user string, e *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, user)
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
