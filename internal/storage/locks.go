package storage

import (
	"slices"
	"sync"
)

// KeyLocks serializes read-modify-write cycles on storage keys. Collections
// lock their own key; whole-store operations such as sync lock every
// collection key. Keys are always acquired in sorted order.
type KeyLocks struct {
	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func NewKeyLocks() *KeyLocks {
	return &KeyLocks{keys: make(map[string]*sync.Mutex)}
}

// Lock blocks until every named key is held and returns the release func
func (l *KeyLocks) Lock(keys ...string) (unlock func()) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*sync.Mutex, len(keys))
	for i, key := range keys {
		held[i] = l.lockFor(key)
		held[i].Lock()
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (l *KeyLocks) lockFor(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.keys[key]
	if !ok {
		m = &sync.Mutex{}
		l.keys[key] = m
	}
	return m
}
