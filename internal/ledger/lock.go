package ledger

import (
	"sort"
	"sync"
)

// userLocks hands out one mutex per user id. Entries are dropped once nobody
// holds or waits for them, so the map only grows with concurrent users.
type userLocks struct {
	mu    sync.Mutex
	locks map[int]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int]*userLock)}
}

// lock acquires the locks of every distinct id in ascending order and returns
// the matching unlock func.
func (l *userLocks) lock(ids ...int) func() {
	uniq := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Ints(uniq)

	held := make([]*userLock, 0, len(uniq))
	for _, id := range uniq {
		ul := l.acquire(id)
		ul.mu.Lock()
		held = append(held, ul)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(uniq[i])
		}
	}
}

func (l *userLocks) acquire(id int) *userLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	ul, ok := l.locks[id]
	if !ok {
		ul = &userLock{}
		l.locks[id] = ul
	}
	ul.refs++
	return ul
}

func (l *userLocks) release(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ul, ok := l.locks[id]
	if !ok {
		return
	}
	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
