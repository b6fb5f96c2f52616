package orchestrator

import (
	"sync"

	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// Event pairs a status with the module that emitted it, for
// subscribers outside the orchestrator (the REST control plane's
// log/status endpoints) that want to observe every status as it
// arrives.
type Event struct {
	Module string
	Status protocol.Status
}

type waiter struct {
	module string
	match  func(protocol.Status) bool
	ch     chan protocol.Status
}

// bus fans out Instance status events to long-lived subscribers
// (Subscribe) and to one-shot waiters used by trial aggregation
// (waitFor).
type bus struct {
	mu          sync.Mutex
	subscribers []chan Event
	waiters     []*waiter
}

// Subscribe returns a channel that receives every event published
// from here on. The channel is never closed; callers that stop caring
// should simply stop reading.
func (b *bus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default: // a slow subscriber misses events rather than blocking publication
		}
	}

	remaining := b.waiters[:0]
	for _, w := range b.waiters {
		if w.module == ev.Module && w.match(ev.Status) {
			w.ch <- ev.Status
			close(w.ch)
			continue
		}
		remaining = append(remaining, w)
	}
	b.waiters = remaining
}

// waitFor registers a one-shot waiter that resolves the next time
// module emits a status for which match returns true.
func (b *bus) waitFor(module string, match func(protocol.Status) bool) <-chan protocol.Status {
	ch := make(chan protocol.Status, 1)
	b.mu.Lock()
	b.waiters = append(b.waiters, &waiter{module: module, match: match, ch: ch})
	b.mu.Unlock()
	return ch
}
