package keylock_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/servicehub/pkg/keylock"
)

func TestMap_SerializesSameKey(t *testing.T) {
	t.Parallel()

	var m keylock.Map[string]
	var active, maxActive atomic.Int32
	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do("cart:1", func() error {
				n := active.Add(1)
				for {
					cur := maxActive.Load()
					if n <= cur || maxActive.CompareAndSwap(cur, n) {
						break
					}
				}
				counter++
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.EqualValues(t, 1, maxActive.Load())
	assert.Zero(t, m.Len())
}

func TestMap_DifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	var m keylock.Map[int]
	unlockA := m.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := m.Lock(2)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestMap_UnlockIsIdempotent(t *testing.T) {
	t.Parallel()

	var m keylock.Map[string]
	unlock := m.Lock("k")
	unlock()
	unlock()
	assert.Zero(t, m.Len())

	unlock = m.Lock("k")
	assert.Equal(t, 1, m.Len())
	unlock()
}
