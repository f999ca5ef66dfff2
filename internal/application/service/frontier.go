package service

import (
	"sync"

	"crypto-taint-tracer/internal/domain/entity"
)

// frontierItem is one unit of traversal work.
type frontierItem struct {
	addr  entity.Address
	depth int
}

// frontier is the FIFO work queue of the traversal. Workers both consume
// items and push the destinations they discover, so the queue tracks
// outstanding work to detect quiescence: once every pushed item has been
// finished and the queue is empty, Pop unblocks all waiters with ok=false.
type frontier struct {
	mu          sync.Mutex
	cond        *sync.Cond
	items       []frontierItem
	outstanding int
	closed      bool
}

func newFrontier() *frontier {
	f := &frontier{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push enqueues work. Returns false once the frontier has been closed; the
// caller must not expect the item to be processed.
func (f *frontier) Push(addr entity.Address, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.items = append(f.items, frontierItem{addr: addr, depth: depth})
	f.outstanding++
	f.cond.Broadcast()
	return true
}

// Pop blocks until an item is available or the frontier is drained/closed.
func (f *frontier) Pop() (frontierItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.items) == 0 && !f.closed {
		f.cond.Wait()
	}
	if len(f.items) == 0 {
		return frontierItem{}, false
	}
	item := f.items[0]
	f.items = f.items[1:]
	return item, true
}

// Done signals that a popped item has been fully processed, including any
// pushes it produced. The last Done with an empty queue closes the frontier.
func (f *frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.outstanding--
	if f.outstanding <= 0 && len(f.items) == 0 {
		f.closed = true
	}
	f.cond.Broadcast()
}

// Close stops the frontier early: pending items are dropped and all Pop
// callers unblock. Used on cancellation and on a fatal start-address failure.
func (f *frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.items = nil
	f.cond.Broadcast()
}
