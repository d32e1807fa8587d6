package roles

import (
	"context"
	"sync"
)

// Locker serialises mutations of one application's role set.
type Locker interface {
	Lock(ctx context.Context, appID string) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker with one lock per application.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewKeyedMutex builds an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]chan struct{})}
}

// Lock waits for the application's slot or for ctx to finish.
func (k *KeyedMutex) Lock(ctx context.Context, appID string) (func(), error) {
	k.mu.Lock()
	slot, ok := k.slots[appID]
	if !ok {
		slot = make(chan struct{}, 1)
		k.slots[appID] = slot
	}
	k.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
