package marketdata

import (
	"sort"
	"sync"

	"bitex_go/internal/domain"
)

// Board is the last-value cache over the market-data feeds. It keeps the
// most recent tick per (symbol, entry type) so a fresh subscriber gets a
// snapshot before the live updates. Safe for concurrent use.
type Board struct {
	mu     sync.RWMutex
	latest map[string]map[string]domain.Tick // symbol -> entry type -> tick
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{
		latest: make(map[string]map[string]domain.Tick),
	}
}

// Update records t as the latest value for its feed. Wired as a bus
// subscriber for every configured market.
func (b *Board) Update(t domain.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byType, ok := b.latest[t.Symbol]
	if !ok {
		byType = make(map[string]domain.Tick)
		b.latest[t.Symbol] = byType
	}
	byType[t.EntryType] = t
}

// Snapshot returns the latest tick for each requested entry type of a
// symbol. Feeds that have never ticked are absent from the result.
func (b *Board) Snapshot(symbol string, entryTypes []string) []domain.Tick {
	b.mu.RLock()
	defer b.mu.RUnlock()

	byType, ok := b.latest[symbol]
	if !ok {
		return nil
	}

	out := make([]domain.Tick, 0, len(entryTypes))
	for _, et := range entryTypes {
		if t, ok := byType[et]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Symbols returns every symbol that has ticked, sorted for consistent
// ordering.
func (b *Board) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.latest))
	for s := range b.latest {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
