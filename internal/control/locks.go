package control

import (
	"context"
	"sync"
)

// deviceLocks serialises commands per device ID. Waiters for the same
// device are admitted in arrival order; different devices never contend.
type deviceLocks struct {
	mu    sync.Mutex
	slots map[string]*deviceSlot
}

type deviceSlot struct {
	sem  chan struct{}
	refs int
}

func newDeviceLocks() *deviceLocks {
	return &deviceLocks{slots: make(map[string]*deviceSlot)}
}

// acquire blocks until the device is free or ctx ends. The returned func
// releases the device and must be called exactly once.
func (l *deviceLocks) acquire(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[id]
	if !ok {
		slot = &deviceSlot{sem: make(chan struct{}, 1)}
		l.slots[id] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(id, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.sem
			l.drop(id, slot)
		})
	}, nil
}

func (l *deviceLocks) drop(id string, slot *deviceSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, id)
	}
}
