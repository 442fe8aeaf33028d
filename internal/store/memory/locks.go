package memory

import (
	"context"
	"sync"
)

// lockTable hands out one single-slot semaphore per material id. Holding a
// slot serializes every read-modify-write on that material.
type lockTable struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[int64]chan struct{})}
}

func (t *lockTable) slot(id int64) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		t.slots[id] = ch
	}
	return ch
}

// acquire takes the slots for ids in the order given. Callers pass ids sorted
// ascending so overlapping acquisitions cannot deadlock.
func (t *lockTable) acquire(ctx context.Context, ids []int64) (func(), error) {
	held := make([]chan struct{}, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range ids {
		ch := t.slot(id)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}
