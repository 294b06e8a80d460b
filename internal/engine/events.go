// Match events and the in-tick bus that fans them out to the journal,
// the compressed log, and observers.
package engine

import (
	"sync"

	"github.com/talgya/settlersim/internal/world"
)

// Event categories.
const (
	CategoryConstruction = "construction"
	CategoryScore        = "score"
	CategoryResource     = "resource"
	CategoryMarket       = "market"
	CategoryPort         = "port"
	CategorySetup        = "setup"
	CategoryDice         = "dice"
	CategoryRobber       = "robber"
)

// Event is a notable occurrence in the match.
type Event struct {
	Tick        uint64         `json:"tick"`
	Time        float64        `json:"time"`
	Category    string         `json:"category"`
	PlayerID    world.PlayerID `json:"player_id,omitempty"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// maxRecentEvents bounds the in-memory event history.
const maxRecentEvents = 1000

// EventBus delivers events synchronously to subscribers and keeps a short
// history for observers that join late.
type EventBus struct {
	mu     sync.RWMutex
	subs   []func(Event)
	recent []Event
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers fn for every future event. Subscribers run on the
// tick goroutine and must not block.
func (b *EventBus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

// Publish records e and hands it to every subscriber.
func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	b.recent = append(b.recent, e)
	if len(b.recent) > maxRecentEvents {
		b.recent = b.recent[len(b.recent)-maxRecentEvents:]
	}
	subs := b.subs
	b.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Recent returns up to n of the latest events, oldest first.
func (b *EventBus) Recent(n int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.recent) {
		n = len(b.recent)
	}
	return append([]Event(nil), b.recent[len(b.recent)-n:]...)
}
