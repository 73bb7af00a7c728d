package pubsub

import "sync"

// Broadcaster fans a "something changed" signal out to subscribers. Each
// subscriber channel holds at most one pending signal, so slow readers see
// coalesced notifications and always re-read the latest state.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan struct{})}
}

// Subscribe returns a signal channel and a func that releases it.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Notify signals every subscriber without blocking.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len is the number of live subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
