package api

import (
	"sync"

	"github.com/MJE43/oligopoly-sim-go/internal/game"
)

const subscriberBuffer = 64

// EventBuffer fans game events out to HTTP subscribers and keeps a bounded
// replay window for late joiners. Emit never blocks the game loop: a
// subscriber that falls behind loses events.
type EventBuffer struct {
	mu     sync.Mutex
	recent []game.Event
	max    int
	subs   map[chan game.Event]struct{}
}

var _ game.Emitter = (*EventBuffer)(nil)

func NewEventBuffer(max int) *EventBuffer {
	if max <= 0 {
		max = 500
	}
	return &EventBuffer{
		max:  max,
		subs: make(map[chan game.Event]struct{}),
	}
}

func (b *EventBuffer) Emit(ev game.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.recent) >= b.max {
		b.recent = b.recent[1:]
	}
	b.recent = append(b.recent, ev)

	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a listener. The returned cancel function must be
// called when the listener goes away.
func (b *EventBuffer) Subscribe() (<-chan game.Event, func()) {
	ch := make(chan game.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Recent returns up to n of the latest buffered events, oldest first.
func (b *EventBuffer) Recent(n int) []game.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.recent) {
		n = len(b.recent)
	}
	out := make([]game.Event, n)
	copy(out, b.recent[len(b.recent)-n:])
	return out
}
