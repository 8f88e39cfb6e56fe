package core

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/semaphore"
)

// keyLocker serializes work per dedup key. Locks are taken in sorted key
// order so two callers with overlapping key sets cannot deadlock, and the
// wait honors ctx.
type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: map[string]*keyLock{}}
}

// Lock acquires every key and returns the function that releases them.
func (l *keyLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]string, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}

	for _, key := range sorted {
		kl := l.ref(key)
		if err := kl.sem.Acquire(ctx, 1); err != nil {
			l.unref(key)
			release()
			return nil, err
		}
		held = append(held, key)
	}
	return release, nil
}

func (l *keyLocker) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *keyLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl := l.locks[key]
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *keyLocker) release(key string) {
	l.mu.Lock()
	kl := l.locks[key]
	l.mu.Unlock()
	kl.sem.Release(1)
	l.unref(key)
}

// size reports how many keys are tracked.
func (l *keyLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
