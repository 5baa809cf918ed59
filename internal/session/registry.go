package session

import (
	"bitex_go/internal/domain"
)

// subscription is one (instrument, entry type) feed registration held under
// a client-chosen request ID.
type subscription struct {
	busID      uint64
	instrument string
	entryType  string
	depth      int
}

// Registry tracks one connection's market-data subscriptions by request ID
// and owns their registration with the market-data bus. It is confined to
// the session's dispatch goroutine and needs no locking.
type Registry struct {
	bus  domain.MarketBus
	subs map[string][]subscription
}

// NewRegistry creates an empty registry backed by bus.
func NewRegistry(bus domain.MarketBus) *Registry {
	return &Registry{
		bus:  bus,
		subs: make(map[string][]subscription),
	}
}

// Subscribe registers one subscription per (instrument, entry type) pair and
// stores them under reqID. A reqID that is already active accumulates the
// new entries; duplicate subscribe requests append rather than replace.
func (r *Registry) Subscribe(reqID string, depth int, instruments, entryTypes []string, h domain.TickHandler) {
	for _, instrument := range instruments {
		for _, entryType := range entryTypes {
			id := r.bus.Subscribe(instrument, entryType, h)
			r.subs[reqID] = append(r.subs[reqID], subscription{
				busID:      id,
				instrument: instrument,
				entryType:  entryType,
				depth:      depth,
			})
		}
	}
}

// Unsubscribe releases every subscription under reqID. An unknown reqID is
// a no-op.
func (r *Registry) Unsubscribe(reqID string) {
	subs, ok := r.subs[reqID]
	if !ok {
		return
	}
	for _, sub := range subs {
		r.bus.Unsubscribe(sub.busID)
	}
	delete(r.subs, reqID)
}

// ReleaseAll unsubscribes every outstanding request. Called once, at
// disconnect.
func (r *Registry) ReleaseAll() {
	for reqID := range r.subs {
		r.Unsubscribe(reqID)
	}
}

// Count returns the number of subscriptions held under reqID.
func (r *Registry) Count(reqID string) int {
	return len(r.subs[reqID])
}

// ActiveRequests returns the number of outstanding request IDs.
func (r *Registry) ActiveRequests() int {
	return len(r.subs)
}
