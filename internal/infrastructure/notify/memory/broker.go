package memory

import (
	"context"
	"sync"

	"github.com/rackline/matchplay/internal/domain/notify"
)

const subscriberBuffer = 16

// Broker is an in-process fan-out of change events, grouped per match.
// Sends never block: a subscriber whose buffer is full misses the event
// and recovers on its next full refetch.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan notify.Event
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan notify.Event)}
}

func (b *Broker) Publish(_ context.Context, event notify.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.MatchID] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Broker) Subscribe(matchID string) (<-chan notify.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[matchID] == nil {
		b.subs[matchID] = make(map[int]chan notify.Event)
	}

	id := b.nextID
	b.nextID++
	ch := make(chan notify.Event, subscriberBuffer)
	b.subs[matchID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[matchID][id]; ok {
			delete(b.subs[matchID], id)
			close(sub)
			if len(b.subs[matchID]) == 0 {
				delete(b.subs, matchID)
			}
		}
	}

	return ch, cancel
}
