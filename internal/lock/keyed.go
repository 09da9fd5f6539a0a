package lock

import (
	"context"
	"sync"
)

// Keyed hands out one mutex per key. Entries are dropped once no goroutine
// holds or waits on them.
type Keyed struct {
	mu    sync.Mutex
	locks map[int64]*refMutex
}

type refMutex struct {
	ch   chan struct{}
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[int64]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *Keyed) Lock(key int64) func() {
	unlock, _ := k.LockContext(context.Background(), key)
	return unlock
}

// LockContext is Lock that gives up when ctx is done.
func (k *Keyed) LockContext(ctx context.Context, key int64) (func(), error) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{ch: make(chan struct{}, 1)}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, m)
		return nil, ctx.Err()
	}
	return func() {
		<-m.ch
		k.release(key, m)
	}, nil
}

func (k *Keyed) release(key int64, m *refMutex) {
	k.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// Len is the number of keys currently held or waited on.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
