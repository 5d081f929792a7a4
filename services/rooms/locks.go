package rooms

import "sync"

// roomLocks serializes the mutations on one room code inside this process.
// Entries are dropped once nobody holds or waits for them.
type roomLocks struct {
	mutex sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

// Lock blocks until the room is free and returns the matching unlock function
func (l *roomLocks) Lock(code string) func() {
	l.mutex.Lock()
	lock, ok := l.locks[code]
	if !ok {
		lock = &roomLock{}
		l.locks[code] = lock
	}
	lock.refs++
	l.mutex.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		l.mutex.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, code)
		}
		l.mutex.Unlock()
	}
}
