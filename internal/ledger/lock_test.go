package ledger

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLocksSerializeSameUser(t *testing.T) {
	locks := newUserLocks()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(7)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside)
	assert.Zero(t, locks.size())
}

func TestUserLocksOppositeOrderDoesNotDeadlock(t *testing.T) {
	locks := newUserLocks()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			locks.lock(1, 2)()
		}()
		go func() {
			defer wg.Done()
			locks.lock(2, 1)()
		}()
	}
	wg.Wait()
	assert.Zero(t, locks.size())
}

func TestUserLocksDuplicateIDs(t *testing.T) {
	locks := newUserLocks()
	unlock := locks.lock(3, 3, 3)
	assert.Equal(t, 1, locks.size())
	unlock()
	assert.Zero(t, locks.size())
}

func TestWithLockReleasesAfterPanic(t *testing.T) {
	p := NewProcessor(nil, defaultRates(), nil, nil)
	assert.Panics(t, func() {
		_ = p.withLock([]int{3, 4}, func() error { panic("apply failed") })
	})

	done := make(chan error, 1)
	go func() {
		done <- p.withLock([]int{4, 3}, func() error { return nil })
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("user lock still held after a panicking mutation")
	}
	assert.Zero(t, p.locks.size())
}
