// Package report implements the execution-report router: a process-wide
// routing table from account ID to the listeners of that account's live
// connections.
package report

import (
	"sync"

	"bitex_go/internal/domain"
)

// Listener receives execution reports for one account on one connection.
// Listeners must not block; delivery backpressure belongs to the
// connection's outbound queue.
type Listener func(*domain.ExecutionReport)

type entry struct {
	id uint64
	fn Listener
}

// Router fans execution reports out to registered listeners. An account may
// have several listeners at once (one per live connection). Safe for
// concurrent use.
type Router struct {
	mu       sync.RWMutex
	nextID   uint64
	accounts map[string][]entry
	index    map[uint64]string // handle -> account, for unregister
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		nextID:   1,
		accounts: make(map[string][]entry),
		index:    make(map[uint64]string),
	}
}

// Register adds fn as a listener for accountID and returns a handle that
// must be unregistered at disconnect.
func (r *Router) Register(accountID string, fn Listener) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.accounts[accountID] = append(r.accounts[accountID], entry{id: id, fn: fn})
	r.index[id] = accountID
	return id
}

// Unregister removes a listener. Unknown handles are a no-op.
func (r *Router) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accountID, ok := r.index[id]
	if !ok {
		return
	}
	delete(r.index, id)

	entries := r.accounts[accountID]
	for i, e := range entries {
		if e.id == id {
			r.accounts[accountID] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(r.accounts[accountID]) == 0 {
		delete(r.accounts, accountID)
	}
}

// Publish delivers rpt to every listener for the account, in registration
// order. Reports for accounts with no listeners are dropped.
func (r *Router) Publish(accountID string, rpt *domain.ExecutionReport) {
	r.mu.RLock()
	entries := r.accounts[accountID]
	snapshot := make([]Listener, len(entries))
	for i, e := range entries {
		snapshot[i] = e.fn
	}
	r.mu.RUnlock()

	for _, fn := range snapshot {
		fn(rpt)
	}
}

// ListenerCount returns the number of listeners for an account (external read).
func (r *Router) ListenerCount(accountID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts[accountID])
}
