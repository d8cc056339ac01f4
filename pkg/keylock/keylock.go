// Package keylock provides mutual exclusion per key.
//
// Holders of different keys never block each other. Entries are reference
// counted and removed when the last holder unlocks, so the map only holds
// keys that are in use.
package keylock

import "sync"

// Map is a set of mutexes keyed by K. The zero value is ready to use.
type Map[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock function.
func (m *Map[K]) Lock(key K) (unlock func()) {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[K]*entry)
	}
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.locks, key)
			}
			m.mu.Unlock()
		})
	}
}

// Do runs fn while holding key.
func (m *Map[K]) Do(key K, fn func() error) error {
	unlock := m.Lock(key)
	defer unlock()
	return fn()
}

// Len reports how many keys are currently held or awaited.
func (m *Map[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
