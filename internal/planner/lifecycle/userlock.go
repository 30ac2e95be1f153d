package lifecycle

import (
	"sync"

	"github.com/google/uuid"
)

// userLocks serializes schedule generation and activation per user.
// Two concurrent generate calls for the same user must not both win.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[uuid.UUID]*entry)}
}

// Lock acquires the user's mutex and returns the unlock function.
// Entries are reference-counted so the map does not grow with user count.
func (u *userLocks) Lock(userID uuid.UUID) func() {
	u.mu.Lock()
	e, ok := u.locks[userID]
	if !ok {
		e = &entry{}
		u.locks[userID] = e
	}
	e.refs++
	u.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		u.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(u.locks, userID)
		}
		u.mu.Unlock()
	}
}
