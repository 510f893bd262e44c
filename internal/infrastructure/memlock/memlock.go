// Package memlock provides per-key mutual exclusion. Every mutation of one
// shopping session (ledger write, phase advance, disbursement change)
// serializes through the session's lock; work on different sessions runs in
// parallel.
package memlock

import (
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex is a set of lazily created mutexes, one per key.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uuid.UUID]*entry)}
}

// Lock acquires the mutex for key and returns its unlock func. Entries are
// reference counted and removed when the last holder releases, so the map
// does not grow with historical sessions.
func (k *KeyedMutex) Lock(key uuid.UUID) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}
