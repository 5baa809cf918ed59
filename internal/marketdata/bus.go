// Package marketdata implements the in-process market-data bus: a
// publish/subscribe table keyed by (instrument, entry type).
package marketdata

import (
	"sync"

	"bitex_go/internal/domain"
)

// Bus routes ticks to subscribed handlers. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string]map[uint64]domain.TickHandler
	subs   map[uint64]string // handle -> topic, for cancellation
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		nextID: 1,
		topics: make(map[string]map[uint64]domain.TickHandler),
		subs:   make(map[uint64]string),
	}
}

func topicKey(instrument, entryType string) string {
	return instrument + "|" + entryType
}

// Subscribe registers h for the (instrument, entryType) feed and returns a
// cancellation handle.
func (b *Bus) Subscribe(instrument, entryType string, h domain.TickHandler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := topicKey(instrument, entryType)
	handlers, ok := b.topics[key]
	if !ok {
		handlers = make(map[uint64]domain.TickHandler)
		b.topics[key] = handlers
	}

	id := b.nextID
	b.nextID++
	handlers[id] = h
	b.subs[id] = key
	return id
}

// Unsubscribe cancels a registration. Unknown handles are a no-op.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)

	handlers := b.topics[key]
	delete(handlers, id)
	if len(handlers) == 0 {
		delete(b.topics, key)
	}
}

// Publish delivers the tick to every handler subscribed to its feed.
// Handlers run outside the bus lock so they may subscribe or unsubscribe.
func (b *Bus) Publish(t domain.Tick) {
	b.mu.RLock()
	handlers := b.topics[topicKey(t.Symbol, t.EntryType)]
	snapshot := make([]domain.TickHandler, 0, len(handlers))
	for _, h := range handlers {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		h(t)
	}
}

// SubscriberCount returns the number of handlers on a feed (external read).
func (b *Bus) SubscriberCount(instrument, entryType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topicKey(instrument, entryType)])
}
